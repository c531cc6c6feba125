package training

import (
	"errors"

	"github.com/synaptica-ai/dcis/pkg/ml/classify"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrNotFitted            = classify.ErrNotFitted
	ErrRunNotFound          = errors.New("pipeline run not found")
)
