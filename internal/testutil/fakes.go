package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/andrebq/lostminer/internal/imagestore"
)

type (
	SentCode struct {
		Email    string
		Username string
		Code     string
	}

	// Mailbox records confirmation codes instead of sending them
	Mailbox struct {
		sync.Mutex
		sent []SentCode
	}

	// Bucket keeps uploaded images in memory
	Bucket struct {
		sync.Mutex
		Objects map[string][]byte
		seq     int
	}
)

func (m *Mailbox) SendCode(ctx context.Context, email, username, code string) error {
	m.Lock()
	defer m.Unlock()
	m.sent = append(m.sent, SentCode{Email: email, Username: username, Code: code})
	return nil
}

// LastCode returns the most recent code sent to email
func (m *Mailbox) LastCode(email string) (string, bool) {
	m.Lock()
	defer m.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Email == email {
			return m.sent[i].Code, true
		}
	}
	return "", false
}

func (m *Mailbox) Count() int {
	m.Lock()
	defer m.Unlock()
	return len(m.sent)
}

func (b *Bucket) Upload(ctx context.Context, folder string, img imagestore.Image) (string, error) {
	buf, err := io.ReadAll(img.Body)
	if err != nil {
		return "", err
	}
	b.Lock()
	defer b.Unlock()
	if b.Objects == nil {
		b.Objects = map[string][]byte{}
	}
	b.seq++
	key := fmt.Sprintf("%v/%v-%v", folder, b.seq, img.Name)
	b.Objects[key] = buf
	return "https://images.test/" + key, nil
}
