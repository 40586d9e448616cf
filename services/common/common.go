package common

import (
	"github.com/urfave/cli"
)

var (
	SettingsDirFlag  = "settings-dir"
	ItemsPerPageFlag = "items-per-page"
	PlusStickerFlag  = "plus-sticker"
	UsernameFlag     = "username"
	PasswordFlag     = "password"

	ComponentAPIFlag = "component-api-url"
	SSOAPIFlag       = "sso-api-url"
	GatlingAPIFlag   = "gatling-api-url"
	DynamicAPIFlag   = "dynamic-gatling-api-url"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	f = append(f,
		cli.StringFlag{
			Name:   SettingsDirFlag,
			Usage:  "directory for credentials and cookies",
			Value:  ".ruutu",
			EnvVar: "RUUTU_SETTINGS_DIR",
		},
		cli.IntFlag{
			Name:   ItemsPerPageFlag,
			Usage:  "listing page size",
			Value:  25,
			EnvVar: "RUUTU_ITEMS_PER_PAGE",
		},
		cli.BoolFlag{
			Name:   PlusStickerFlag,
			Usage:  "render subscription sticker as thumbnail overlay instead of title suffix",
			EnvVar: "RUUTU_PLUS_STICKER",
		},
		cli.StringFlag{
			Name:   UsernameFlag,
			Usage:  "account username",
			EnvVar: "RUUTU_USERNAME",
		},
		cli.StringFlag{
			Name:   PasswordFlag,
			Usage:  "account password",
			EnvVar: "RUUTU_PASSWORD",
		},
		cli.StringFlag{
			Name:   ComponentAPIFlag,
			Usage:  "navigation/component api base url",
			Value:  "https://prod-component-api.nm-services.nelonenmedia.fi",
			EnvVar: "RUUTU_COMPONENT_API_URL",
		},
		cli.StringFlag{
			Name:   SSOAPIFlag,
			Usage:  "single sign-on api url",
			Value:  "https://tili.sanoma.fi/sso/api",
			EnvVar: "RUUTU_SSO_API_URL",
		},
		cli.StringFlag{
			Name:   GatlingAPIFlag,
			Usage:  "session/storage api base url",
			Value:  "https://gatling.nelonenmedia.fi",
			EnvVar: "RUUTU_GATLING_API_URL",
		},
		cli.StringFlag{
			Name:   DynamicAPIFlag,
			Usage:  "episode metadata api base url",
			Value:  "https://dynamic-gatling.nelonenmedia.fi",
			EnvVar: "RUUTU_DYNAMIC_GATLING_API_URL",
		},
	)

	return f
}
