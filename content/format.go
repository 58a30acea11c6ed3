package content

import (
	"time"

	"github.com/andrebq/lostminer/store"
)

type (
	// Author is the public representation of a user that wrote something
	Author struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
	}

	View struct {
		ID          int64             `json:"id"`
		Author      Author            `json:"author"`
		Name        string            `json:"name"`
		Description *string           `json:"description"`
		Category    store.Category    `json:"category"`
		Version     string            `json:"version"`
		CreatedAt   time.Time         `json:"created_at"`
		Resolution  *int64            `json:"resolution"`
		DownloadURL string            `json:"download_url"`
		ImagesURLs  map[string]string `json:"images_urls"`
	}
)

func FormatAuthor(a store.Author) Author {
	return Author{UserID: a.ID, Username: a.Username}
}

func Present(c store.Content) View {
	images := c.ImagesURLs
	if images == nil {
		images = map[string]string{}
	}
	return View{
		ID:          c.ID,
		Author:      FormatAuthor(c.Author),
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		Resolution:  c.Resolution,
		DownloadURL: c.DownloadURL,
		ImagesURLs:  images,
	}
}

func PresentAll(list []store.Content) []View {
	out := make([]View, 0, len(list))
	for _, c := range list {
		out = append(out, Present(c))
	}
	return out
}
