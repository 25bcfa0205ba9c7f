package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}

	return id.String(), nil
}

func now() time.Time {
	return time.Now().UTC()
}
