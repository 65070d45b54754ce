// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_settled(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"/intake/b.zip":  now.Add(-3 * time.Second),
		"/intake/a.zip":  now.Add(-2 * time.Second),
		"/intake/c.part": now.Add(-time.Second),
	}
	assert.Equal(t, []string{"/intake/a.zip", "/intake/b.zip"}, settled(pending, now, 2*time.Second))
}

func TestWatcherRun(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	var handled []string
	done := make(chan error, 1)
	w := New(dir, 200*time.Millisecond, nil)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, path string) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, path)
			if len(handled) == 1 {
				cancel()
			}
			return nil
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.zip"), []byte("PK"), 0600))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("watcher did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{filepath.Join(dir, "evidence.zip")}, handled)
}
