package app

import (
	"time"

	"github.com/google/uuid"
)

func newItemID() string {
	return uuid.NewString()
}

func nowFunc() time.Time {
	return time.Now().UTC()
}
