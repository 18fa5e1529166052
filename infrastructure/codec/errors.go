package codec

import "github.com/signal15/tuya-minisplit-hubitat/application"

// errProtocol is a local alias for the shared protocol-error sentinel, kept
// package-private so call sites read naturally (fmt.Errorf("%w: ...",
// errProtocol)) while callers outside the package still match via
// errors.Is(err, application.ErrProtocol).
var errProtocol = application.ErrProtocol
