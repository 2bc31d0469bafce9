package curseforge

import "errors"

var (
	errNoModloader     = errors.New("manifest lists no modloaders")
	errInvalidLoaderID = errors.New("loader id is not of the form name-version")
	errAPIAuth         = errors.New("curseforge proxy rejected the request credentials")
	errAPIStatus       = errors.New("curseforge proxy returned an error status")
	errTooManyAPIErrors = errors.New("too many curseforge api errors, aborting install")
)
