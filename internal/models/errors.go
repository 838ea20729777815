package models

import (
	"errors"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrAnalysisFailed  = errors.New("tile analysis failed")
	ErrJobNotFinished  = errors.New("analysis job not finished")
	ErrJobCancelled    = errors.New("analysis job cancelled")
	ErrGridShape       = errors.New("generated grid does not match requested bounds")
	ErrUnknownTagLabel = errors.New("unknown tag label")
)
