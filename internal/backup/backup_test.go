package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/homeledger/internal/database"
	"github.com/dukerupert/homeledger/internal/model"
	"github.com/dukerupert/homeledger/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return nil, m.delErr
	}
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func (m *mockS3Client) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var enabledConfig = Config{
	S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	Passphrase: "correct horse",
	Hour:       3,
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupBackupTest returns an enabled manager over a fresh in-memory
// database holding one document, uploading to a mock bucket.
func setupBackupTest(t *testing.T) (*Manager, *mockS3Client, *store.BackupStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ('groups/g1/transactions', 't1', '{"value":"12.50"}', '2024-01-01T00:00:00.000000000Z', '2024-01-01T00:00:00.000000000Z')`)
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	bs := store.NewBackupStore(db)
	m := NewManager(enabledConfig, db, bs, testLogger(), nil)
	mock := newMockS3()
	m.client = mock
	return m, mock, bs
}

func TestManagerStateLifecycle(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want State
	}{
		{"no s3", Config{Passphrase: "p"}, StateDisabled},
		{"no passphrase", Config{S3: enabledConfig.S3}, StateDisabled},
		{"configured", enabledConfig, StateIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.cfg, nil, nil, testLogger(), nil)
			if got := m.Status().State; got != tt.want {
				t.Errorf("state = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManagerDefaults(t *testing.T) {
	m := NewManager(Config{}, nil, nil, testLogger(), nil)
	if m.cfg.Prefix != "backups" || m.cfg.RetentionDays != 30 {
		t.Errorf("cfg = %+v, want prefix backups and 30 days", m.cfg)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(enabledConfig, nil, nil, testLogger(), cb)

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(enabledConfig, nil, nil, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, testLogger(), nil)
	m.Start(context.Background())
	m.Stop()

	if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	if err := m.Cleanup(context.Background()); err != nil {
		t.Errorf("cleanup on disabled manager: %v", err)
	}
}

func TestRunNowAndRestore(t *testing.T) {
	m, mock, bs := setupBackupTest(t)
	ctx := context.Background()

	id, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if mock.count() != 1 {
		t.Fatalf("uploaded objects = %d, want 1", mock.count())
	}

	record, err := bs.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != model.BackupStatusCompleted || record.SizeBytes == 0 {
		t.Errorf("record = %+v", record)
	}
	if !strings.HasPrefix(record.S3Key, "backups/backup-") {
		t.Errorf("key = %q", record.S3Key)
	}
	if st := m.Status(); st.State != StateIdle || st.LastBackup == nil {
		t.Errorf("status = %+v", st)
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := m.RestoreTo(ctx, id, dst); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()
	var data string
	if err := restored.QueryRow(`SELECT data FROM documents WHERE id = 't1'`).Scan(&data); err != nil {
		t.Fatalf("read restored document: %v", err)
	}
	if data != `{"value":"12.50"}` {
		t.Errorf("data = %s", data)
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	m, _, _ := setupBackupTest(t)
	ctx := context.Background()

	id, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	m.cfg.Passphrase = "wrong"
	if err := m.RestoreTo(ctx, id, filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Error("expected error restoring with the wrong passphrase")
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, bs := setupBackupTest(t)
	ctx := context.Background()
	mock.putErr = errors.New("bucket unreachable")

	if _, err := m.RunNow(ctx); err == nil {
		t.Fatal("expected error")
	}
	if st := m.Status(); st.State != StateError || st.Error == "" {
		t.Errorf("status = %+v", st)
	}

	list, err := bs.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed || list[0].ErrorMessage == "" {
		t.Errorf("records = %+v", list)
	}
}

func TestCleanupRemovesExpiredObjects(t *testing.T) {
	m, mock, bs := setupBackupTest(t)
	ctx := context.Background()

	if _, err := m.RunNow(ctx); err != nil {
		t.Fatalf("run backup: %v", err)
	}
	m.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }

	if err := m.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if mock.count() != 0 {
		t.Errorf("objects left = %d, want 0", mock.count())
	}
	if list, _ := bs.List(ctx, 10); len(list) != 0 {
		t.Errorf("records left = %d, want 0", len(list))
	}
}

func TestCheckScheduleRunsOncePerDay(t *testing.T) {
	m, mock, _ := setupBackupTest(t)
	ctx := context.Background()

	m.now = func() time.Time { return time.Date(2024, 1, 10, 2, 30, 0, 0, time.UTC) }
	m.checkSchedule(ctx)
	if mock.count() != 0 {
		t.Fatalf("backup ran outside its hour")
	}

	m.now = func() time.Time { return time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC) }
	m.checkSchedule(ctx)
	m.now = func() time.Time { return time.Date(2024, 1, 10, 3, 1, 0, 0, time.UTC) }
	m.checkSchedule(ctx)
	if mock.count() != 1 {
		t.Errorf("objects = %d, want 1", mock.count())
	}

	m.now = func() time.Time { return time.Date(2024, 1, 11, 3, 0, 0, 0, time.UTC) }
	m.checkSchedule(ctx)
	if mock.count() != 2 {
		t.Errorf("objects = %d, want 2 after the next day", mock.count())
	}
}
