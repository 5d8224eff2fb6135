package liquid

import "errors"

// ErrInvalidArgument — некорректные аргументы примитива.
// Пипетка при этом не затрагивается.
var ErrInvalidArgument = errors.New("invalid liquid handling argument")
