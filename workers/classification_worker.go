package workers

import (
	"context"
	"log"
	"time"

	"spider-league/services"
)

// ClassificationWorker drains spiders awaiting classification
type ClassificationWorker struct {
	Spiders     *services.SpiderService
	Classifier  services.Classifier
	Progression *services.ProgressionService // optional; awards XP per classified spider
	BatchSize   int
}

func NewClassificationWorker(spiders *services.SpiderService, classifier services.Classifier, progression *services.ProgressionService, batchSize int) *ClassificationWorker {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &ClassificationWorker{
		Spiders:     spiders,
		Classifier:  classifier,
		Progression: progression,
		BatchSize:   batchSize,
	}
}

// ClassifyBatch classifies up to BatchSize pending spiders and returns
// how many were classified successfully.
func (w *ClassificationWorker) ClassifyBatch(ctx context.Context) (int, error) {
	pending, err := w.Spiders.PendingForClassification(ctx, w.BatchSize)
	if err != nil {
		return 0, err
	}

	classified := 0
	for _, spider := range pending {
		if ctx.Err() != nil {
			return classified, ctx.Err()
		}

		result, err := w.Classifier.Classify(ctx, spider.ImageURL)
		if err != nil {
			log.Printf("❌ [CLASSIFIER] %s: %v", spider.ID, err)
			_ = w.Spiders.MarkClassificationFailed(ctx, spider.ID, err, false)
			continue
		}
		if _, err := w.Spiders.ApplyClassification(ctx, spider.ID, result); err != nil {
			log.Printf("❌ [CLASSIFIER] could not apply result for %s: %v", spider.ID, err)
			continue
		}
		classified++

		if w.Progression != nil {
			if _, err := w.Progression.AwardXP(spider.OwnerID, services.DefaultXPWeights.ClassifyXP, "spider classified"); err != nil {
				log.Printf("⚠️ [CLASSIFIER] XP award for %s failed: %v", spider.OwnerID, err)
			}
		}
	}
	return classified, nil
}

// PollClassifications runs ClassifyBatch on every tick until ctx is done
func PollClassifications(ctx context.Context, worker *ClassificationWorker, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	log.Println("Starting classification polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Classification polling stopped.")
			return
		case <-ticker.C:
			n, err := worker.ClassifyBatch(ctx)
			if err != nil {
				log.Printf("❌ Error polling classifications: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("📥 Classified %d spider(s).", n)
			}
		}
	}
}
