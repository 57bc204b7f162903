package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driving"
)

func TestSyncCmd_SyncsSite(t *testing.T) {
	fake := &fakeIngestor{syncReport: &driving.SyncReport{
		Uploaded: 1,
		Replaced: 2,
		Skipped:  3,
	}}

	withFakeIngestor(fake, func() {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs([]string{"sync", "mydiy.ie"})
		defer func() {
			rootCmd.SetArgs(nil)
		}()

		err := rootCmd.Execute()

		assert.NoError(t, err)
		assert.Equal(t, []string{"mydiy.ie"}, fake.syncedSites)
		assert.Contains(t, buf.String(), "1 uploaded, 2 replaced, 3 skipped")
	})
}

func TestSyncCmd_RequiresSite(t *testing.T) {
	fake := &fakeIngestor{}

	withFakeIngestor(fake, func() {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs([]string{"sync"})
		defer func() {
			rootCmd.SetArgs(nil)
		}()

		err := rootCmd.Execute()

		assert.Error(t, err)
		assert.Empty(t, fake.syncedSites)
	})
}

func TestSyncCmd_PropagatesFailure(t *testing.T) {
	fake := &fakeIngestor{syncErr: errors.New("remote unavailable")}

	withFakeIngestor(fake, func() {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs([]string{"sync", "mydiy.ie"})
		defer func() {
			rootCmd.SetArgs(nil)
		}()

		err := rootCmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "remote unavailable")
	})
}

func TestRebuildCmd_RebuildsSite(t *testing.T) {
	fake := &fakeIngestor{}

	withFakeIngestor(fake, func() {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs([]string{"rebuild", "mydiy.ie"})
		defer func() {
			rootCmd.SetArgs(nil)
		}()

		err := rootCmd.Execute()

		assert.NoError(t, err)
		assert.Equal(t, []string{"mydiy.ie"}, fake.rebuiltSites)
	})
}

func TestRemoveCmd_RemovesEntity(t *testing.T) {
	fake := &fakeIngestor{}

	withFakeIngestor(fake, func() {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs([]string{"remove", "mydiy.ie", "https://www.mydiy.ie/products/hammer"})
		defer func() {
			rootCmd.SetArgs(nil)
		}()

		err := rootCmd.Execute()

		assert.NoError(t, err)
		require.Len(t, fake.removed, 1)
		assert.Equal(t, [2]string{"mydiy.ie", "https://www.mydiy.ie/products/hammer"}, fake.removed[0])
		assert.Contains(t, buf.String(), "Removed")
	})
}
