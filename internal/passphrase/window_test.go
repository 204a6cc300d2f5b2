package passphrase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDoesNotOverwrite(t *testing.T) {
	w := NewWindow()

	_, err := w.Open("autumn24")
	require.NoError(t, err)

	existing, err := w.Open("spring25")
	require.ErrorIs(t, err, ErrAlreadyOpen)
	require.Equal(t, "autumn24", existing)

	phrase, open := w.Status()
	require.True(t, open)
	require.Equal(t, "autumn24", phrase)
}

func TestCloseReturnsPrevious(t *testing.T) {
	w := NewWindow()
	_, err := w.Open("x")
	require.NoError(t, err)

	prev, wasOpen := w.Close()
	require.True(t, wasOpen)
	require.Equal(t, "x", prev)

	_, open := w.Status()
	require.False(t, open)

	prev, wasOpen = w.Close()
	require.False(t, wasOpen)
	require.Empty(t, prev)
}

func TestOpenRejectsEmpty(t *testing.T) {
	_, err := NewWindow().Open("")
	require.ErrorIs(t, err, ErrEmptyPhrase)
}

func TestConcurrentOpenHasOneWinner(t *testing.T) {
	w := NewWindow()
	phrases := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	results := make([]error, len(phrases))
	for i, p := range phrases {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			_, results[i] = w.Open(p)
		}(i, p)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, err := range results {
		if err == nil {
			winners++
			winner = phrases[i]
		}
	}
	require.Equal(t, 1, winners)
	phrase, _ := w.Status()
	require.Equal(t, winner, phrase)
}
