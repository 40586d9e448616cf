package stream

import "encoding/xml"

// Kind selects the resolution path.
type Kind string

const (
	OnDemand Kind = "video"
	Live     Kind = "live"
)

// Descriptor is the uniform result of stream resolution. DRMToken and
// LicenseURL are set iff DRMProtected is true.
type Descriptor struct {
	VideoURL     string
	DRMProtected bool
	DRMToken     string
	LicenseURL   string
}

// LicenseKeyURL is the full license endpoint handed to a DRM-capable
// player: the raw license URL with the play token concatenated.
func (d *Descriptor) LicenseKeyURL() string {
	if !d.DRMProtected || d.LicenseURL == "" {
		return ""
	}
	return d.LicenseURL + "&token=" + d.DRMToken
}

// playerData is the XML "player data" manifest enumerating a video's
// media files and optional DRM metadata.
type playerData struct {
	XMLName xml.Name `xml:"Playerdata"`
	Clip    struct {
		AppleMediaFiles struct {
			AppleMediaFile string `xml:"AppleMediaFile"`
		} `xml:"AppleMediaFiles"`
		DRM *struct {
			CheckURL string `xml:"check_url,attr"`
			AssetID  string `xml:"asset_id,attr"`
		} `xml:"DRM"`
	} `xml:"Clip"`
}

// mpd is the slice of a DASH manifest the resolver cares about: the
// first period's content-protection license metadata.
type mpd struct {
	XMLName xml.Name `xml:"MPD"`
	Period  struct {
		ID             string `xml:"id,attr"`
		AdaptationSets []struct {
			ContentProtections []struct {
				Laurl struct {
					LicenseURL string `xml:"licenseUrl,attr"`
				} `xml:"laurl"`
			} `xml:"ContentProtection"`
		} `xml:"AdaptationSet"`
	} `xml:"Period"`
}

type drmKeyResponse struct {
	EmpDrmKey struct {
		PlayToken    string `json:"playToken"`
		MediaLocator string `json:"mediaLocator"`
	} `json:"empDrmKey"`
}
