package syncutil

import (
	"sync"
	"testing"
)

func TestShardedMutex_SerializesSameKey(t *testing.T) {
	var m ShardedMutex

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("0xsignature")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100 (lost updates under same-key lock)", counter)
	}
}

func TestShardedMutex_IndependentKeys(t *testing.T) {
	var m ShardedMutex

	// Hold one key's lock; a key in a different shard must still be lockable.
	unlockA := m.Lock("key-a")
	defer unlockA()

	locked := make(chan struct{})
	go func() {
		// Try keys until one lands in a different shard.
		for i := 0; ; i++ {
			key := string(rune('b' + i%20))
			if m.shard(key) == m.shard("key-a") {
				continue
			}
			unlock := m.Lock(key)
			unlock()
			close(locked)
			return
		}
	}()
	<-locked
}

func TestShardedMutex_StableSharding(t *testing.T) {
	var m ShardedMutex
	if m.shard("0xabc") != m.shard("0xabc") {
		t.Error("same key mapped to different shards")
	}
}
