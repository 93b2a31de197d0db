// Package dot11 classifies captured 802.11 frames.
//
// Classify is a pure function over one frame: it decodes the frame control
// field, the three header addresses and, where present, the beacon fixed
// parameters, the SSID and the EAPOL key-exchange marker of data frames.
// It never reads past the captured length; frames that are too short for a
// field group are still returned with that group listed in Frame.Missing.
//
// Sniffer sits between a capture path and Classify. OnFrameCaptured copies
// and queues a frame without blocking and a single worker classifies it into
// a bounded store. CaptureSource feeds a Sniffer from a monitor-mode
// interface or a pcap file.
//
// Example usage:
//
//	source, err := dot11.OpenLive("wlan0mon")
//	sniffer := dot11.NewSniffer(nil)
//	go sniffer.Run(ctx)
//	err = source.Deliver(ctx, sniffer)
//	for _, frame := range sniffer.Frames() {
//		fmt.Println(frame.SubtypeName(), frame.SSID)
//	}
package dot11
