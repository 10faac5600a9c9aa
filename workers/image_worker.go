package workers

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/config"
	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/realtime"
	"github.com/camden-git/genealogybackend/repository"
	"github.com/camden-git/genealogybackend/utils"
)

// TaskType constants
const (
	TaskThumbnail = "thumbnail"
	TaskMetadata  = "metadata"
)

// ImageJob is one processing task for an uploaded image
type ImageJob struct {
	ImageID    uint
	StoredPath string // relative to MEDIA_STORAGE_PATH
	TaskType   string
}

func (j ImageJob) pendingKey() string {
	return fmt.Sprintf("%d:%s", j.ImageID, j.TaskType)
}

// Broadcaster receives task status changes. realtime.Hub implements it.
type Broadcaster interface {
	Broadcast(event realtime.Event)
}

type ImageProcessor struct {
	JobQueue  chan ImageJob
	Config    config.Config
	DB        *gorm.DB
	Processor *media.Processor
	Events    Broadcaster
	Wg        sync.WaitGroup
	StopChan  chan struct{}
	Pending   map[string]bool
	Mutex     sync.Mutex
	stopOnce  sync.Once
}

func NewImageProcessor(cfg config.Config, db *gorm.DB, processor *media.Processor, events Broadcaster) *ImageProcessor {
	numWorkers := cfg.NumImageWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	queueSize := cfg.ImageQueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &ImageProcessor{
		JobQueue:  make(chan ImageJob, queueSize),
		Config:    cfg,
		DB:        db,
		Processor: processor,
		Events:    events,
		StopChan:  make(chan struct{}),
		Pending:   make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d image processing worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (ip *ImageProcessor) images() *repository.ImageRepository {
	return repository.NewImageRepository(ip.DB)
}

func (ip *ImageProcessor) release(job ImageJob) {
	ip.Mutex.Lock()
	delete(ip.Pending, job.pendingKey())
	ip.Mutex.Unlock()
}

func (ip *ImageProcessor) worker(id int) {
	defer ip.Wg.Done()

	log.Printf("Image worker %d started", id)
	for {
		select {
		case job, ok := <-ip.JobQueue:
			if !ok {
				log.Printf("Image worker %d stopping: Job queue closed", id)
				return
			}
			ip.run(id, job)
			ip.release(job)

		case <-ip.StopChan:
			log.Printf("Image worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (ip *ImageProcessor) run(workerID int, job ImageJob) {
	log.Printf("Worker %d: Received job type '%s' for image %d", workerID, job.TaskType, job.ImageID)

	statusColumn := job.TaskType + "_status"
	if err := ip.images().MarkTaskProcessing(job.ImageID, statusColumn); err != nil {
		if repository.IsNotFound(err) {
			log.Printf("Worker %d: image %d no longer exists, dropping %s task", workerID, job.ImageID, job.TaskType)
			return
		}
		log.Printf("Worker %d: ERROR marking %s processing for image %d: %v. Skipping job.", workerID, job.TaskType, job.ImageID, err)
		return
	}
	ip.notify(job, models.StatusProcessing, nil)

	var taskErr error
	switch job.TaskType {
	case TaskThumbnail:
		taskErr = ip.processThumbnailTask(job)
	case TaskMetadata:
		taskErr = ip.processMetadataTask(job)
	default:
		log.Printf("Worker %d: ERROR unknown task type '%s' for image %d", workerID, job.TaskType, job.ImageID)
		return
	}

	if taskErr != nil {
		ip.notify(job, models.StatusFailed, taskErr)
	} else {
		ip.notify(job, models.StatusDone, nil)
	}
}

func (ip *ImageProcessor) notify(job ImageJob, status string, taskErr error) {
	if ip.Events == nil {
		return
	}
	event := realtime.Event{
		Type:   realtime.EventImageTask,
		Entity: "image",
		ID:     job.ImageID,
		Task:   job.TaskType,
		Status: status,
	}
	if taskErr != nil {
		event.Error = taskErr.Error()
	}
	ip.Events.Broadcast(event)
}

// originalPath resolves the stored upload and checks that it is still on disk
func (ip *ImageProcessor) originalPath(job ImageJob) (string, error) {
	fullPath, err := ip.Processor.Store().GetFullPath(job.StoredPath)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(fullPath); os.IsNotExist(statErr) {
		return "", fmt.Errorf("original file not found: %w", statErr)
	} else if statErr != nil {
		return "", fmt.Errorf("failed to stat original file: %w", statErr)
	}
	return fullPath, nil
}

// processThumbnailTask generates the thumbnail and records the outcome
func (ip *ImageProcessor) processThumbnailTask(job ImageJob) error {
	var thumbPathPtr *string

	_, taskErr := ip.originalPath(job)
	if taskErr != nil {
		log.Printf("Worker: Skipping thumbnail task for image %d: %v", job.ImageID, taskErr)
	} else {
		thumbPath, genErr := ip.Processor.GenerateThumbnail(job.StoredPath, ip.Config.ThumbnailMaxSize)
		if genErr != nil {
			taskErr = fmt.Errorf("thumbnail generation failed: %w", genErr)
			log.Printf("Worker: ERROR %v", taskErr)
		} else {
			thumbPathPtr = &thumbPath
			log.Printf("Worker: Generated thumbnail for image %d", job.ImageID)
		}
	}

	if dbErr := ip.images().UpdateThumbnailResult(job.ImageID, thumbPathPtr, taskErr); dbErr != nil {
		log.Printf("Worker: ERROR updating thumbnail DB result for image %d: %v", job.ImageID, dbErr)
	}
	return taskErr
}

func (ip *ImageProcessor) processMetadataTask(job ImageJob) error {
	var metadata *media.Metadata

	fullPath, taskErr := ip.originalPath(job)
	if taskErr != nil {
		log.Printf("Worker: Skipping metadata task for image %d: %v", job.ImageID, taskErr)
	} else {
		metadata, taskErr = utils.GetImageMetadata(fullPath)
		if taskErr != nil {
			log.Printf("Worker: ERROR extracting metadata for image %d: %v", job.ImageID, taskErr)
		} else {
			log.Printf("Worker: Extracted metadata for image %d", job.ImageID)
		}
	}

	if dbErr := ip.images().UpdateMetadataResult(job.ImageID, metadata, taskErr); dbErr != nil {
		log.Printf("Worker: ERROR updating metadata DB result for image %d: %v", job.ImageID, dbErr)
	}
	return taskErr
}

// QueueJob queues a specific task if not already pending
func (ip *ImageProcessor) QueueJob(job ImageJob) bool {
	pendingKey := job.pendingKey()

	ip.Mutex.Lock()
	if ip.Pending[pendingKey] {
		ip.Mutex.Unlock()
		return false
	}
	ip.Pending[pendingKey] = true
	ip.Mutex.Unlock()

	select {
	case ip.JobQueue <- job:
		log.Printf("Queued task '%s' for image %d", job.TaskType, job.ImageID)
		return true
	default:
		log.Printf("WARNING: Image processing job queue full. Failed to queue task '%s' for image %d", job.TaskType, job.ImageID)
		ip.release(job)
		return false
	}
}

// QueueImageTasks schedules both tasks for a fresh upload
func (ip *ImageProcessor) QueueImageTasks(imageID uint, storedPath string) {
	for _, task := range []string{TaskMetadata, TaskThumbnail} {
		ip.QueueJob(ImageJob{ImageID: imageID, StoredPath: storedPath, TaskType: task})
	}
}

// RequeueUnfinished queues every task left pending or interrupted by a
// previous run. Returns the number of jobs queued.
func (ip *ImageProcessor) RequeueUnfinished() (int, error) {
	images, err := ip.images().GetImagesRequiringProcessing()
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, img := range images {
		if !img.IsUpload() {
			continue
		}
		tasks := map[string]string{
			TaskMetadata:  img.MetadataStatus,
			TaskThumbnail: img.ThumbnailStatus,
		}
		for task, status := range tasks {
			if status != models.StatusPending && status != models.StatusProcessing {
				continue
			}
			if ip.QueueJob(ImageJob{ImageID: img.ID, StoredPath: *img.StoredPath, TaskType: task}) {
				queued++
			}
		}
	}
	if queued > 0 {
		log.Printf("Requeued %d unfinished image task(s)", queued)
	}
	return queued, nil
}

func (ip *ImageProcessor) Stop() {
	ip.stopOnce.Do(func() {
		log.Println("Stopping image processor workers...")
		close(ip.StopChan)
		ip.Wg.Wait()
		log.Println("All image processor workers stopped")
	})
}
