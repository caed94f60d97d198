package fuzzy

import (
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/trcb/test"
)

// alphabet mirrors the teacher's own fuzzy test fixture: a fixed sequence
// of distinct payloads to broadcast one at a time.
var alphabet = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}

// Test_SequentialCommands emits one broadcast at a time from a rotating
// node and verifies that every node in the cluster ends up with the exact
// same delivered sequence, since no failure is injected over the
// transport. Mirrors the teacher's Test_SequentialCommands.
func Test_SequentialCommands(t *testing.T) {
	cluster := test.NewCluster(t, 3, "alphabet", true)
	defer func() {
		if !test.WaitThisOrTimeout(cluster.Off, 30*time.Second) {
			t.Error("failed shutdown cluster")
			test.PrintStackTrace(t)
		}
		goleak.VerifyNone(t)
	}()

	for i, letter := range alphabet {
		log.Printf("************************** sending %s **************************", letter)
		cluster.Next().Node.Broadcast([]byte(letter))
		// Wait for every node to deliver this letter before the next one is
		// sent, so each broadcast causally follows the previous one.
		cluster.WaitUntilAllDelivered(i+1, 5*time.Second)
	}

	if !cluster.WaitUntilAllDelivered(len(alphabet), 30*time.Second) {
		t.Fatal("not every node delivered all messages within the deadline")
	}

	want := cluster.DeliveredBodies(0)
	for i := 1; i < len(cluster.Nodes); i++ {
		got := cluster.DeliveredBodies(i)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("node %d diverged from node 0: got %v want %v", i, got, want)
		}
	}
}

// Test_ConcurrentCommands fires every letter from a distinct goroutine at
// once and only asserts that every node ends up delivering the full,
// duplicate-free set — concurrent broadcasts are not totally ordered with
// each other (spec.md Scenario 3), so unlike Test_SequentialCommands this
// does not compare exact sequences across nodes. Mirrors the teacher's
// Test_ConcurrentCommands.
func Test_ConcurrentCommands(t *testing.T) {
	cluster := test.NewCluster(t, 3, "concurrent", true)
	defer func() {
		if !test.WaitThisOrTimeout(cluster.Off, 30*time.Second) {
			t.Error("failed shutdown cluster")
			test.PrintStackTrace(t)
		}
		goleak.VerifyNone(t)
	}()

	var group sync.WaitGroup
	for _, letter := range alphabet {
		group.Add(1)
		go func(val string) {
			defer group.Done()
			log.Printf("************************** sending %s **************************", val)
			cluster.Next().Node.Broadcast([]byte(val))
		}(letter)
	}

	if !test.WaitThisOrTimeout(group.Wait, 30*time.Second) {
		t.Fatal("not finished all broadcasts after 30 seconds")
	}

	if !cluster.WaitUntilAllDelivered(len(alphabet), 30*time.Second) {
		t.Fatal("not every node delivered all messages within the deadline")
	}

	for i := range cluster.Nodes {
		got := cluster.DeliveredBodies(i)
		seen := make(map[string]struct{}, len(got))
		for _, body := range got {
			if _, dup := seen[body]; dup {
				t.Errorf("node %d delivered %q more than once", i, body)
			}
			seen[body] = struct{}{}
		}
		for _, letter := range alphabet {
			if _, ok := seen[letter]; !ok {
				t.Errorf("node %d never delivered %q", i, letter)
			}
		}
	}
}
