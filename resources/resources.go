package resources

import "embed"

//go:embed i18n
var FS embed.FS
