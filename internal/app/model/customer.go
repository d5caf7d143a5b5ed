package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the owning identity of a wallet. XID is the external identifier
// supplied by the caller; Token is the opaque bearer token issued when the
// customer record is first created.
type Customer struct {
	ID        uuid.UUID
	XID       uuid.UUID
	Token     string
	CreatedAt time.Time
}
