package generator

import "errors"

var errEmptyCompletion = errors.New("completion returned no message content")
