package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

type (
	NotFound struct {
		Entity string
		ID     interface{}
	}

	// Conflict is returned when a write violates a unique constraint
	Conflict struct {
		Entity string
		Fields []string
	}

	// InUse is returned when an entity cannot be removed because others
	// still reference it
	InUse struct {
		Entity string
		By     string
	}

	InvalidContentModel struct {
		Model string
	}

	ContentModelMismatch struct {
		Configured ContentModel
		Found      ContentModel
	}
)

func (n NotFound) Error() string {
	return fmt.Sprintf("%v %v not found", n.Entity, n.ID)
}

func (c Conflict) Error() string {
	if len(c.Fields) == 0 {
		return fmt.Sprintf("%v already exists", c.Entity)
	}
	return fmt.Sprintf("%v with the same %v already exists", c.Entity, strings.Join(c.Fields, ", "))
}

func (i InUse) Error() string {
	return fmt.Sprintf("%v is still referenced by %v", i.Entity, i.By)
}

func (i InvalidContentModel) Error() string {
	return fmt.Sprintf("content model %q is not valid, use %v or %v", i.Model, CompositeUnique, IndependentUnique)
}

func (c ContentModelMismatch) Error() string {
	return fmt.Sprintf("database was created with content model %v but %v was requested", c.Found, c.Configured)
}

// conflictOf turns sqlite unique constraint violations into Conflict
func conflictOf(err error, entity string) (Conflict, bool) {
	var serr sqlite3.Error
	if !errors.As(err, &serr) || serr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return Conflict{}, false
	}
	c := Conflict{Entity: entity}
	msg := serr.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		for _, col := range strings.Split(msg[idx+2:], ", ") {
			if dot := strings.Index(col, "."); dot >= 0 {
				col = col[dot+1:]
			}
			c.Fields = append(c.Fields, strings.TrimSpace(col))
		}
	}
	return c, true
}
