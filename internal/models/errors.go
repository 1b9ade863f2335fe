package models

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrTaskExists       = errors.New("periodic task already exists")
	ErrMalformedFinish  = errors.New("malformed finish date/time")
	ErrFinishInPast     = errors.New("finish date/time must be in the future")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidReference = errors.New("referenced client or message does not exist")
)
