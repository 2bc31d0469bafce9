package modrinth

import "errors"

var (
	errNotMinecraft  = errors.New("manifest game field is not minecraft")
	errNoModloader   = errors.New("manifest dependencies list no known modloader")
	errNoMinecraft   = errors.New("manifest dependencies have no minecraft version")
)
