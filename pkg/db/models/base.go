package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it zero. Postgres also
// defaults ids via gen_random_uuid(), but setting it client-side keeps the
// generated id on the struct after Create.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
