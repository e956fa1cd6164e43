package models

import "errors"

var ErrInvalidIdentifier error = errors.New("The identifier contains disallowed characters")
var ErrInvalidAction error = errors.New("The action must be either like or dislike")
var ErrInvalidLimit error = errors.New("The limit must be a positive integer")
var ErrVoteNotFound error = errors.New("No vote exists for this grant and researcher")
var ErrRequestNotFound error = errors.New("No researcher request exists for this id")
var ErrInvalidEmail error = errors.New("Invalid email format")
