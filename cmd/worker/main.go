// Bulk access key minting. Pre-generates keys for offline distribution
// (printed vouchers, partner batches) through the batch write queue, chunked
// under its operation cap.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/quizdeck/quizdeck-backend/config"
	"github.com/quizdeck/quizdeck-backend/internal/accesskeys/domain"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
	"github.com/quizdeck/quizdeck-backend/internal/store"
)

func main() {
	count := flag.Int("count", 100, "number of keys to mint")
	capability := flag.String("capability", "", "capability the keys unlock (e.g. TEACHER_QUIZ_CREATION)")
	courses := flag.String("courses", "", "comma-separated course ids the keys unlock")
	createdBy := flag.String("created-by", "bulk-worker", "creator recorded on each key")
	flag.Parse()

	if *count <= 0 {
		log.Fatal("count must be positive")
	}
	if (*capability == "") == (*courses == "") {
		log.Fatal("exactly one of -capability and -courses is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	clients, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		log.Fatalf("initialize firebase: %v", err)
	}
	defer clients.Firestore.Close()

	docStore := store.NewFirestoreStore(clients.Firestore)
	minted, err := mint(ctx, docStore, *count, *capability, splitList(*courses), *createdBy)
	if err != nil {
		log.Fatalf("minting failed after %d keys: %v", minted, err)
	}
	log.Printf("minted %d access keys", minted)
}

// mint writes keys in batch-queue chunks. Each chunk commits all-or-nothing;
// a candidate collision fails the whole chunk, which is then rebuilt with
// fresh candidates.
func mint(ctx context.Context, st store.Store, count int, capability string, courses []string, createdBy string) (int, error) {
	queue := store.NewBatchQueue(st)
	minted := 0

	for minted < count {
		chunk := count - minted
		if chunk > store.MaxBatchOps {
			chunk = store.MaxBatchOps
		}

		if err := queue.Start(); err != nil {
			return minted, err
		}
		for i := 0; i < chunk; i++ {
			key, err := domain.NewKey()
			if err != nil {
				_ = queue.Rollback()
				return minted, fmt.Errorf("generate key: %w", err)
			}
			data := map[string]interface{}{
				"status":    domain.StatusNew,
				"createdAt": store.ServerTimestamp,
				"createdBy": createdBy,
			}
			if capability != "" {
				data["unlocksCapability"] = capability
			}
			if len(courses) > 0 {
				data["cartToUnlock"] = map[string]interface{}{
					"subjects": []string{},
					"courses":  courses,
				}
			}
			if err := queue.Create(domain.Collection, key, data); err != nil {
				_ = queue.Rollback()
				return minted, err
			}
		}

		result, err := queue.Commit(ctx)
		if err != nil {
			if store.IsAlreadyExists(err) {
				log.Printf("[warn] operation=bulk_mint message=chunk hit a key collision, retrying with fresh candidates")
				continue
			}
			return minted, err
		}
		minted += result.OperationsCount
		log.Printf("committed %d keys in %s", result.OperationsCount, result.Duration)
	}

	return minted, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
