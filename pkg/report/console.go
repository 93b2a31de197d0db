package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/arp"
	"github.com/projectdiscovery/netsweep/pkg/peerdiscovery/dot11"
)

// Console prints one human readable line per result through gologger.Silent
type Console struct {
	au *aurora.Aurora
}

// NewConsole creates a console writer
func NewConsole(colors bool) *Console {
	return &Console{au: aurora.New(aurora.WithColors(colors))}
}

func (c *Console) WriteDevice(device arp.Device) error {
	gologger.Silent().Msg(c.formatDevice(device))
	return nil
}

func (c *Console) WriteFrame(frame dot11.Frame) error {
	gologger.Silent().Msg(c.formatFrame(frame))
	return nil
}

func (c *Console) WriteSummary(summary *arp.Summary) error {
	gologger.Silent().Msg(c.formatSummary(summary))
	return nil
}

func (c *Console) WriteStats(stats dot11.Stats) error {
	gologger.Info().Msgf("Sniffer: %d received, %d classified, %d dropped, %d rejected, %d over capacity",
		stats.Received, stats.Classified, stats.Dropped, stats.Rejected, stats.StoreFull)
	return nil
}

func (c *Console) Close() error {
	return nil
}

func (c *Console) formatDevice(device arp.Device) string {
	return fmt.Sprintf("%s %s", c.au.Green(device.IP.String()), c.au.Cyan(device.MAC.String()))
}

func (c *Console) formatFrame(frame dot11.Frame) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s -> %s bssid=%s seq=%d",
		c.au.Blue(frame.SubtypeName()), frame.Source, frame.Destination, frame.BSSID, frame.SequenceNumber))

	if frame.SSID != "" {
		sb.WriteString(fmt.Sprintf(" ssid=%q", frame.SSID))
	}
	if frame.BeaconInterval != nil {
		sb.WriteString(fmt.Sprintf(" interval=%d", *frame.BeaconInterval))
	}

	var security []string
	if frame.Privacy {
		security = append(security, "privacy")
	}
	if frame.RSN {
		security = append(security, "rsn")
	}
	if frame.WPA {
		security = append(security, "wpa")
	}
	if len(security) > 0 {
		sb.WriteString(" [" + strings.Join(security, ",") + "]")
	}
	if frame.HasKeyExchange {
		sb.WriteString(" " + c.au.Yellow("[eapol]").String())
	}
	if len(frame.Missing) > 0 {
		sb.WriteString(" " + c.au.Red("missing="+strings.Join(frame.Missing, ",")).String())
	}
	return sb.String()
}

func (c *Console) formatSummary(summary *arp.Summary) string {
	status := "completed"
	if summary.Cancelled {
		status = "cancelled"
	}
	return fmt.Sprintf("Sweep of %s %s: %d addresses scanned, %d devices found (%s)",
		summary.Subnet, status, summary.AddressesScanned, summary.DevicesFound, summary.Duration.Round(time.Millisecond))
}
