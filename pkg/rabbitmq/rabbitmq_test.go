package rabbitmq_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"storefront/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	body, err := rabbitmq.EncodeNotice("proc-a", "cart", at)
	require.NoError(t, err)
	assert.JSONEq(t, `{"origin":"proc-a","collection":"cart","at":"2024-05-01T10:00:00Z"}`, string(body))

	notice, err := rabbitmq.DecodeNotice(body)
	require.NoError(t, err)
	assert.Equal(t, "cart", notice.Collection)
	assert.True(t, at.Equal(notice.At))
}

func TestDecodeNotice_Malformed(t *testing.T) {
	_, err := rabbitmq.DecodeNotice([]byte("not json"))
	assert.Error(t, err)

	_, err = rabbitmq.DecodeNotice([]byte(`{"origin":"proc-a"}`))
	assert.EqualError(t, err, "change notice without collection")
}

func TestClient_FanOutBetweenProcesses(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}
	cfg := rabbitmq.Config{URL: url, Exchange: "store.changes.test"}
	a, err := rabbitmq.NewClient(cfg)
	require.NoError(t, err)
	defer a.Close()
	b, err := rabbitmq.NewClient(cfg)
	require.NoError(t, err)
	defer b.Close()

	var mu sync.Mutex
	var seenByA, seenByB []string
	require.NoError(t, a.ConsumeChanges(func(c string) {
		mu.Lock()
		seenByA = append(seenByA, c)
		mu.Unlock()
	}))
	require.NoError(t, b.ConsumeChanges(func(c string) {
		mu.Lock()
		seenByB = append(seenByB, c)
		mu.Unlock()
	}))

	require.NoError(t, a.PublishChange("products"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seenByB) == 1
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Empty(t, seenByA)
	assert.Equal(t, []string{"products"}, seenByB)
	mu.Unlock()
}
