package runner

import (
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/pkg/version"
)

const banner = `
                 __
   ____  ___  / /______      _____  ___  ____
  / __ \/ _ \/ __/ ___/ | /| / / _ \/ _ \/ __ \
 / / / /  __/ /_(__  )| |/ |/ /  __/  __/ /_/ /
/_/ /_/\___/\__/____/ |__/|__/\___/\___/ .___/
                                      /_/
`

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n", au.Bold(au.Blue(banner)).String())
	gologger.Print().Msgf("\t\t\t\t\t%s\n\n", version.GetVersion())
}
