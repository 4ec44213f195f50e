package store

import (
	"math/rand"
	"sync"
	"time"
)

// Push IDs are the 20-character keys the legacy document tree generated
// client-side: 8 characters of millisecond timestamp followed by 12 random
// characters, over an alphabet whose ASCII order matches its index order so
// keys sort by creation time.
const pushChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// PushIDGenerator mints push IDs. Same-millisecond calls increment the
// random tail so keys stay strictly increasing within a process.
type PushIDGenerator struct {
	mu       sync.Mutex
	now      func() time.Time
	rnd      *rand.Rand
	lastTime int64
	lastRand [12]int
}

func NewPushIDGenerator() *PushIDGenerator {
	return &PushIDGenerator{
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a fresh push ID.
func (g *PushIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms == g.lastTime {
		// Same millisecond: bump the previous random tail.
		for i := 11; i >= 0; i-- {
			g.lastRand[i]++
			if g.lastRand[i] < 64 {
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		g.lastTime = ms
		for i := range g.lastRand {
			g.lastRand[i] = g.rnd.Intn(64)
		}
	}

	var id [20]byte
	t := ms
	for i := 7; i >= 0; i-- {
		id[i] = pushChars[t%64]
		t /= 64
	}
	for i, r := range g.lastRand {
		id[8+i] = pushChars[r]
	}
	return string(id[:])
}
