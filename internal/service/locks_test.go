package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserLocks_OpposingPairsDoNotDeadlock(t *testing.T) {
	l := newUserLocks()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := l.lock("a", "b")
			counter++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := l.lock("b", "a", "b")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, l.size())
}
