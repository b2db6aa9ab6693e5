package upload

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an upload session.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusReceiving  Status = "receiving"
	StatusAssembling Status = "assembling"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// assembleWindowSize is the copy buffer used when streaming chunks into the
// assembled artifact. Chunks are never loaded whole into memory.
const assembleWindowSize = 4 * 1024 * 1024

const sweepInterval = 10 * time.Minute

// Session is the public view of one chunked upload.
type Session struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	MimeType    string    `json:"mime_type"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int       `json:"total_chunks"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type session struct {
	Session
	mu       sync.Mutex // single-writer-per-id: state transitions never interleave
	indexMu  map[int]*sync.Mutex
	received map[int]bool
}

func (s *session) indexLock(index int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.indexMu[index]
	if !ok {
		m = &sync.Mutex{}
		s.indexMu[index] = m
	}
	return m
}

// Store manages chunked upload sessions. Session metadata is persisted in
// sqlite so status survives a restart; chunk bytes live only in the staging
// directory and are released when the session terminates.
type Store struct {
	db         *sql.DB
	stagingDir string
	assetDir   string
	chunkSize  int64
	ttl        time.Duration

	mu       sync.Mutex
	sessions map[string]*session

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStore opens the staging directory, recovers non-terminal sessions from
// the database, and starts the expiry sweeper.
func NewStore(db *sql.DB, stagingDir, assetDir string, chunkSize int64, ttl time.Duration) (*Store, error) {
	if chunkSize <= 0 {
		chunkSize = 2 * 1024 * 1024
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:         db,
		stagingDir: stagingDir,
		assetDir:   assetDir,
		chunkSize:  chunkSize,
		ttl:        ttl,
		sessions:   make(map[string]*session),
		ctx:        ctx,
		cancel:     cancel,
	}

	if err := s.recover(); err != nil {
		cancel()
		return nil, err
	}

	go s.sweepLoop()
	return s, nil
}

// ChunkSize returns the configured chunk size in bytes.
func (s *Store) ChunkSize() int64 { return s.chunkSize }

// Close stops the sweeper. Chunk data is left on disk for recovery.
func (s *Store) Close() { s.cancel() }

// Start creates a new upload session and returns its id.
func (s *Store) Start(fileName string, fileSize int64, totalChunks int, mimeType string) (*Session, error) {
	if fileSize <= 0 {
		return nil, fmt.Errorf("%w: file size must be positive", ErrChunkSizeMismatch)
	}
	if totalChunks <= 0 {
		return nil, fmt.Errorf("%w: total chunks must be positive", ErrChunkSizeMismatch)
	}
	expected := int((fileSize + s.chunkSize - 1) / s.chunkSize)
	if totalChunks != expected {
		return nil, fmt.Errorf("%w: declared %d, expected %d for %d-byte chunks",
			ErrChunkSizeMismatch, totalChunks, expected, s.chunkSize)
	}
	if !strings.HasPrefix(mimeType, "video/") && !strings.HasPrefix(mimeType, "audio/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)
	}

	now := time.Now()
	sess := &session{
		Session: Session{
			ID:          uuid.New().String(),
			FileName:    filepath.Base(fileName),
			FileSize:    fileSize,
			MimeType:    mimeType,
			ChunkSize:   s.chunkSize,
			TotalChunks: totalChunks,
			Status:      StatusInitiated,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		},
		indexMu:  make(map[int]*sync.Mutex),
		received: make(map[int]bool),
	}

	if err := os.MkdirAll(s.chunkDir(sess.ID), 0755); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(`
		INSERT INTO upload_sessions (id, file_name, file_size, mime_type, chunk_size, total_chunks, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.FileName, sess.FileSize, sess.MimeType, sess.ChunkSize,
		sess.TotalChunks, sess.Status, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		os.RemoveAll(s.chunkDir(sess.ID))
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("[upload] session %s started: %s (%d bytes, %d chunks)",
		sess.ID, sess.FileName, sess.FileSize, sess.TotalChunks)

	public := sess.Session
	return &public, nil
}

// PutChunk stores one chunk. Resubmitting an index overwrites the previous
// bytes (last write wins); writes to the same index serialize while distinct
// indices may proceed concurrently.
func (s *Store) PutChunk(id string, index int, r io.Reader) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.Status != StatusInitiated && sess.Status != StatusReceiving {
		sess.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrSessionClosed, sess.Status)
	}
	if index < 0 || index >= sess.TotalChunks {
		sess.mu.Unlock()
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidChunkIndex, index, sess.TotalChunks)
	}
	if sess.Status == StatusInitiated {
		sess.Status = StatusReceiving
		s.persistStatus(sess.ID, StatusReceiving)
	}
	sess.mu.Unlock()

	lock := sess.indexLock(index)
	lock.Lock()
	defer lock.Unlock()

	final := s.chunkPath(id, index)
	tmp := final + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	buf := make([]byte, assembleWindowSize)
	if _, err := io.CopyBuffer(f, r, buf); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write chunk %d: %w", index, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return err
	}

	sess.mu.Lock()
	sess.received[index] = true
	sess.mu.Unlock()
	return nil
}

// Progress reports how many distinct chunks have arrived.
func (s *Store) Progress(id string) (received, total int, err error) {
	sess, err := s.get(id)
	if err != nil {
		return 0, 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.received), sess.TotalChunks, nil
}

// Get returns the public session state.
func (s *Store) Get(id string) (*Session, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	public := sess.Session
	return &public, nil
}

// Complete assembles the chunks, in index order, into a single artifact and
// releases the chunk storage. Missing chunks fail with an IncompleteError
// and leave the session open for more PutChunk calls.
func (s *Store) Complete(ctx context.Context, id string) (path string, size int64, err error) {
	sess, err := s.get(id)
	if err != nil {
		return "", 0, err
	}

	sess.mu.Lock()
	if sess.Status != StatusInitiated && sess.Status != StatusReceiving {
		status := sess.Status
		sess.mu.Unlock()
		return "", 0, fmt.Errorf("%w: session is %s", ErrSessionClosed, status)
	}
	var missing []int
	for i := 0; i < sess.TotalChunks; i++ {
		if !sess.received[i] {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		sess.mu.Unlock()
		sort.Ints(missing)
		return "", 0, &IncompleteError{Missing: missing}
	}
	sess.Status = StatusAssembling
	s.persistStatus(sess.ID, StatusAssembling)
	sess.mu.Unlock()

	outPath := filepath.Join(s.assetDir, sess.ID+"_"+sanitizeName(sess.FileName))
	out, err := os.Create(outPath)
	if err != nil {
		s.fail(sess)
		return "", 0, err
	}

	buf := make([]byte, assembleWindowSize)
	for i := 0; i < sess.TotalChunks; i++ {
		if ctx.Err() != nil {
			out.Close()
			os.Remove(outPath)
			s.fail(sess)
			return "", 0, ctx.Err()
		}
		// Taking the index lock guarantees no chunk is read mid-write.
		lock := sess.indexLock(i)
		lock.Lock()
		err := copyChunk(out, s.chunkPath(id, i), buf)
		lock.Unlock()
		if err != nil {
			out.Close()
			os.Remove(outPath)
			s.fail(sess)
			return "", 0, fmt.Errorf("assemble chunk %d: %w", i, err)
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		s.fail(sess)
		return "", 0, err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		s.fail(sess)
		return "", 0, err
	}

	os.RemoveAll(s.chunkDir(id))
	sess.mu.Lock()
	sess.Status = StatusCompleted
	sess.mu.Unlock()
	s.persistStatus(id, StatusCompleted)

	log.Printf("[upload] session %s assembled: %s (%d bytes)", id, outPath, info.Size())
	return outPath, info.Size(), nil
}

// Cancel releases all temp storage for the session. Terminal sessions
// (completed, cancelled, failed) and sessions mid-assembly cannot be
// cancelled; further operations on a cancelled id fail with
// ErrSessionNotFound.
func (s *Store) Cancel(id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.Status != StatusInitiated && sess.Status != StatusReceiving {
		status := sess.Status
		sess.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrSessionClosed, status)
	}
	sess.Status = StatusCancelled
	sess.mu.Unlock()

	s.discard(id, StatusCancelled)
	log.Printf("[upload] session %s cancelled", id)
	return nil
}

// discard drops the session from memory and releases its chunk storage,
// recording the given terminal status.
func (s *Store) discard(id string, status Status) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	os.RemoveAll(s.chunkDir(id))
	s.persistStatus(id, status)
}

func (s *Store) get(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) fail(sess *session) {
	os.RemoveAll(s.chunkDir(sess.ID))
	sess.mu.Lock()
	sess.Status = StatusFailed
	sess.mu.Unlock()
	s.persistStatus(sess.ID, StatusFailed)
}

func (s *Store) chunkDir(id string) string {
	return filepath.Join(s.stagingDir, id)
}

func (s *Store) chunkPath(id string, index int) string {
	return filepath.Join(s.chunkDir(id), fmt.Sprintf("chunk_%06d", index))
}

func (s *Store) persistStatus(id string, status Status) {
	if _, err := s.db.Exec("UPDATE upload_sessions SET status = ? WHERE id = ?", status, id); err != nil {
		log.Printf("[upload] persist status for %s: %v", id, err)
	}
}

// recover reloads non-terminal sessions after a restart, rebuilding the
// received set from the chunk files on disk.
func (s *Store) recover() error {
	rows, err := s.db.Query(`
		SELECT id, file_name, file_size, mime_type, chunk_size, total_chunks, status, created_at, expires_at
		FROM upload_sessions WHERE status IN (?, ?)`,
		StatusInitiated, StatusReceiving,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		sess := &session{
			indexMu:  make(map[int]*sync.Mutex),
			received: make(map[int]bool),
		}
		if err := rows.Scan(&sess.ID, &sess.FileName, &sess.FileSize, &sess.MimeType,
			&sess.ChunkSize, &sess.TotalChunks, &sess.Status, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
			return err
		}
		entries, err := os.ReadDir(s.chunkDir(sess.ID))
		if err == nil {
			for _, e := range entries {
				var idx int
				if _, err := fmt.Sscanf(e.Name(), "chunk_%d", &idx); err == nil &&
					!strings.HasSuffix(e.Name(), ".partial") {
					sess.received[idx] = true
				}
			}
		}
		s.sessions[sess.ID] = sess
		count++
	}
	if count > 0 {
		log.Printf("[upload] recovered %d open sessions", count)
	}
	return rows.Err()
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep discards open sessions past their TTL and reaps terminal ones from
// memory. Terminal sessions keep their persisted status; only the map entry
// goes, so status stays queryable until the TTL and the map stays bounded.
func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	var expired, settled []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		open := sess.Status == StatusInitiated || sess.Status == StatusReceiving
		if now.After(sess.ExpiresAt) {
			if open {
				expired = append(expired, id)
			} else if sess.Status != StatusAssembling {
				settled = append(settled, id)
			}
		}
		sess.mu.Unlock()
	}
	for _, id := range settled {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, id := range expired {
		log.Printf("[upload] session %s expired, discarding", id)
		s.discard(id, StatusCancelled)
	}
}

func copyChunk(dst io.Writer, path string, buf []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.CopyBuffer(dst, f, buf)
	return err
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}
