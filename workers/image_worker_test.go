package workers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/config"
	"github.com/camden-git/genealogybackend/database"
	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/realtime"
	"github.com/camden-git/genealogybackend/repository"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Broadcast(event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) statuses(task string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Task == task {
			out = append(out, e.Status)
		}
	}
	return out
}

func setup(t *testing.T) (*gorm.DB, *media.Processor, *ImageProcessor, *recorder) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	store, err := media.NewLocalStorage(t.TempDir(), map[media.AssetType]string{
		media.AssetTypePortrait:  config.DefaultPortraitsSubDir,
		media.AssetTypeThumbnail: config.DefaultThumbnailsSubDir,
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	proc := media.NewProcessor(store)
	events := &recorder{}
	cfg := config.Config{ThumbnailMaxSize: 64, NumImageWorkers: 1, ImageQueueSize: 10}
	ip := NewImageProcessor(cfg, db, proc, events)
	t.Cleanup(ip.Stop)
	return db, proc, ip, events
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{G: 180, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func createUpload(t *testing.T, db *gorm.DB, storedPath string) *models.Image {
	t.Helper()
	ind := models.Individual{}
	if err := repository.NewIndividualRepository(db).Create(&ind); err != nil {
		t.Fatalf("create individual: %v", err)
	}
	img := &models.Image{
		IndividualID:    ind.ID,
		URL:             "/api/" + storedPath,
		StoredPath:      &storedPath,
		ThumbnailStatus: models.StatusPending,
		MetadataStatus:  models.StatusPending,
	}
	if err := repository.NewImageRepository(db).Create(img); err != nil {
		t.Fatalf("create image: %v", err)
	}
	return img
}

func waitForTasks(t *testing.T, db *gorm.DB, id uint) *models.Image {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		img, err := repository.NewImageRepository(db).GetByID(id)
		if err != nil {
			t.Fatalf("get image: %v", err)
		}
		finished := func(s string) bool { return s == models.StatusDone || s == models.StatusFailed }
		if finished(img.ThumbnailStatus) && finished(img.MetadataStatus) {
			return img
		}
		if time.Now().After(deadline) {
			t.Fatalf("tasks did not finish: thumbnail=%s metadata=%s", img.ThumbnailStatus, img.MetadataStatus)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestProcessesUpload(t *testing.T) {
	db, proc, ip, events := setup(t)

	rel, err := proc.SavePortrait(1, "photo.png", pngBytes(t, 200, 100))
	if err != nil {
		t.Fatalf("save portrait: %v", err)
	}
	img := createUpload(t, db, rel)
	ip.QueueImageTasks(img.ID, rel)

	done := waitForTasks(t, db, img.ID)
	if done.ThumbnailStatus != models.StatusDone || done.ThumbnailPath == nil {
		t.Fatalf("thumbnail not generated: status=%s err=%v", done.ThumbnailStatus, done.ThumbnailError)
	}
	if done.MetadataStatus != models.StatusDone {
		t.Fatalf("metadata failed: %v", done.MetadataError)
	}
	if done.Width == nil || *done.Width != 200 || done.Height == nil || *done.Height != 100 {
		t.Fatalf("unexpected dimensions %v x %v", done.Width, done.Height)
	}

	ip.Stop()
	got := events.statuses(TaskThumbnail)
	if len(got) != 2 || got[0] != models.StatusProcessing || got[1] != models.StatusDone {
		t.Fatalf("unexpected thumbnail events %v", got)
	}
}

func TestMissingOriginalFails(t *testing.T) {
	db, _, ip, _ := setup(t)

	img := createUpload(t, db, "portraits/1/missing.png")
	ip.QueueImageTasks(img.ID, *img.StoredPath)

	done := waitForTasks(t, db, img.ID)
	if done.ThumbnailStatus != models.StatusFailed || done.ThumbnailError == nil {
		t.Fatalf("expected failed thumbnail, got %s", done.ThumbnailStatus)
	}
	if done.MetadataStatus != models.StatusFailed || done.MetadataError == nil {
		t.Fatalf("expected failed metadata, got %s", done.MetadataStatus)
	}
}

func TestQueueJobDeduplicates(t *testing.T) {
	ip := &ImageProcessor{
		JobQueue: make(chan ImageJob, 4),
		Pending:  make(map[string]bool),
		StopChan: make(chan struct{}),
	}
	job := ImageJob{ImageID: 3, StoredPath: "portraits/3/a.png", TaskType: TaskThumbnail}
	if !ip.QueueJob(job) {
		t.Fatalf("first queue should succeed")
	}
	if ip.QueueJob(job) {
		t.Fatalf("duplicate job should be rejected while pending")
	}
	job.TaskType = TaskMetadata
	if !ip.QueueJob(job) {
		t.Fatalf("different task for the same image should queue")
	}
	if len(ip.JobQueue) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(ip.JobQueue))
	}
}

func TestRequeueUnfinished(t *testing.T) {
	db, proc, ip, _ := setup(t)

	rel, err := proc.SavePortrait(1, "again.png", pngBytes(t, 40, 40))
	if err != nil {
		t.Fatalf("save portrait: %v", err)
	}
	img := createUpload(t, db, rel)
	if err := repository.NewImageRepository(db).MarkTaskProcessing(img.ID, "thumbnail_status"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	if _, err := ip.RequeueUnfinished(); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	done := waitForTasks(t, db, img.ID)
	if done.ThumbnailStatus != models.StatusDone || done.MetadataStatus != models.StatusDone {
		t.Fatalf("requeued tasks did not complete: %s / %s", done.ThumbnailStatus, done.MetadataStatus)
	}
}
