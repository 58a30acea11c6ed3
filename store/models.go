package store

import "time"

type (
	User struct {
		ID        int64
		Username  string
		Email     string
		IsCreator bool
		// PasswordHash is empty until the user confirms a password reset
		PasswordHash string
	}

	Connection struct {
		ID        int64
		CreatedAt time.Time
		UserID    int64
	}

	Author struct {
		ID       int64
		Username string
	}

	Category string

	Content struct {
		ID          int64
		Name        string
		Description *string
		Author      Author
		Category    Category
		Version     string
		CreatedAt   time.Time
		Resolution  *int64
		DownloadURL string
		ImagesURLs  map[string]string
	}

	Comment struct {
		ID          int64
		ContentID   int64
		CreatedAt   time.Time
		Author      Author
		Text        string
		AnsweringID *int64
	}

	Ordering struct {
		Field string
		Desc  bool
	}

	Page struct {
		Offset int
		Limit  int
	}
)

const (
	Texture = Category("texture")
	World   = Category("world")
	Skin    = Category("skin")
)

func (c Category) Valid() bool {
	switch c {
	case Texture, World, Skin:
		return true
	}
	return false
}

// NeedsResolution reports whether contents of this category must carry a resolution
func (c Category) NeedsResolution() bool {
	return c == Texture || c == Skin
}
