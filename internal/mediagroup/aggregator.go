package mediagroup

import (
	"fmt"
	"sync"
	"time"
)

// Photo is one picture of a Telegram album.
type Photo struct {
	FileID string
	Width  int
	Height int
}

type Item struct {
	ChatID       int64
	UserID       int64
	MediaGroupID string
	Caption      string
	Photo        Photo
}

// Album is a debounced media group. Caption is the last non-empty caption
// seen; Telegram attaches it to whichever photo the user captioned.
type Album struct {
	ChatID  int64
	UserID  int64
	Caption string
	Photos  []Photo
}

// Reference is the photo used as the card's reference image: the first one
// the user picked.
func (a Album) Reference() (Photo, bool) {
	if len(a.Photos) == 0 {
		return Photo{}, false
	}
	return a.Photos[0], true
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Album)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Album)
	albums   map[string]*pendingAlbum
	closed   bool
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		albums:   make(map[string]*pendingAlbum),
	}
}

// Add buffers item and restarts the album's debounce timer. Items without a
// media group or a file are ignored.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.Photo.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	pa, ok := a.albums[key]
	if !ok {
		pa = &pendingAlbum{
			album: Album{
				ChatID:  item.ChatID,
				UserID:  item.UserID,
				Caption: item.Caption,
			},
		}
		a.albums[key] = pa
	} else if item.Caption != "" {
		pa.album.Caption = item.Caption
	}
	pa.album.Photos = append(pa.album.Photos, item.Photo)

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending reports how many albums are still waiting for their timer.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.albums)
}

// Close stops all timers and drops pending albums.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for key, pa := range a.albums {
		if pa.timer != nil {
			pa.timer.Stop()
		}
		delete(a.albums, key)
	}
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pa, ok := a.albums[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.albums, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
