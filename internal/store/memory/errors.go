package memory

import "errors"

var (
	errMissingTitle    = errors.New("record title is required")
	errMissingIdentity = errors.New("record has neither external id nor url identity")
)
