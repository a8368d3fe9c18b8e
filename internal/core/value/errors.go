package value

import cserrors "covscript.dev/go/cs/errors"

var (
	errIndexNegative = cserrors.New(cserrors.Unsupported, "index must be non-negative")
	errDerefNull     = cserrors.New(cserrors.Unsupported, "dereference of a null pointer")
)
