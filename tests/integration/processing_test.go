package integration

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
	"github.com/dmoshi/face-count-service/internal/infra/detector"
	"github.com/dmoshi/face-count-service/internal/infra/email"
	"github.com/dmoshi/face-count-service/internal/infra/fetch"
	"github.com/dmoshi/face-count-service/internal/infra/postgres"
	"github.com/dmoshi/face-count-service/internal/infra/rabbitmq"
	"github.com/dmoshi/face-count-service/internal/infra/relay"
	"github.com/dmoshi/face-count-service/internal/infra/storage"
	"github.com/dmoshi/face-count-service/internal/usecase"
	"github.com/dmoshi/face-count-service/pkg/logger"
)

// serveTestImage serves a synthetic 100x100 camera frame with enough color
// and texture that detector crops survive the face filter.
func serveTestImage(t *testing.T) *httptest.Server {
	t.Helper()
	pattern := [2][2][3]uint8{
		{{150, 50, 100}, {50, 150, 100}},
		{{230, 130, 180}, {130, 230, 180}},
	}
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			p := pattern[y%2][x%2]
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = p[0], p[1], p[2], 255
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, img)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// serveModelStub answers every inference call with two boxes, one plausible
// face and one too small to pass the filter.
func serveModelStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[
			{"x":5,"y":5,"width":40,"height":40,"confidence":0.91},
			{"x":60,"y":60,"width":12,"height":12,"confidence":0.88}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// serveRelayStub accepts one websocket client and forwards every received
// text message into the returned channel.
func serveRelayStub(t *testing.T) (*httptest.Server, chan []byte) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	received := make(chan []byte, 16)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func TestProcessImageEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("faces"),
		tcpostgres.WithUsername("faces_user"),
		tcpostgres.WithPassword("faces_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container standing in for S3
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// HTTP stubs: image origin, model service, websocket relay
	imageSrv := serveTestImage(t)
	modelSrv := serveModelStub(t)
	relaySrv, relayMsgs := serveRelayStub(t)

	// Setup object storage
	store, err := storage.NewS3Store(storage.S3Config{
		Endpoint:  minioEndpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    false,
		Bucket:    "annotated-faces",
		Region:    "eu-central-1",
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	// Setup DB pool
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	// Setup RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "faces.detection")
	require.NoError(t, err)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "faces.processing.dlq")

	// Setup relay client against the stub server
	log, _ := logger.New("debug")
	wsURL := "ws" + strings.TrimPrefix(relaySrv.URL, "http")
	relayClient := relay.NewClient(wsURL, time.Second, false, log)
	require.NoError(t, relayClient.Connect(ctx))
	defer relayClient.Close()

	// Setup use case
	repo := postgres.NewDetectionRepository(pool)
	fetcher := fetch.NewFetcher(5*time.Second, 5_000_000, log)
	det := detector.NewRemoteDetector(modelSrv.URL, detector.InferenceParams{
		ImageSize:     1024,
		ConfThreshold: 0.1,
		IoUThreshold:  0.3,
		Device:        "cpu",
	}, 30*time.Second)
	notifier := email.NewSMTPNotifier("localhost", 1025, "worker@faces.local", "ops@faces.local", log)

	uc := usecase.NewProcessImageUseCase(
		fetcher, det, store, repo,
		relayClient, dlqPub, notifier,
		log,
		usecase.ProcessImageConfig{PersistTimeout: 20 * time.Second},
	)

	// Setup consumer
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "faces.processing",
		Exchange:    "faces.detection",
		DLQ:         "faces.processing.dlq",
		Prefetch:    1,
		WorkerCount: 1,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()

	// Give consumer time to start
	time.Sleep(500 * time.Millisecond)

	// Publish processing message
	imageURL := imageSrv.URL + "/354123456789012_20250315_101530.jpg"
	msg := entity.FaceProcessingMessage{
		ImageURL:      imageURL,
		CustomerID:    "cust-1",
		TargetSession: "sess-9",
		FileType:      "image/jpeg",
	}
	msgBody, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, pub.PublishJob(ctx, msgBody))

	// Wait for the relay notification
	var relayMsg entity.RelayMessage
	select {
	case raw := <-relayMsgs:
		require.NoError(t, json.Unmarshal(raw, &relayMsg))
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for relay message")
	}

	assert.Equal(t, "relay_message", relayMsg.Action)
	assert.Equal(t, "sess-9", relayMsg.TargetSession)
	assert.Equal(t, "face_count", relayMsg.Misc.Action)
	assert.Equal(t, 1, relayMsg.Misc.Count, "small box must be filtered out")
	assert.Equal(t, imageURL, relayMsg.Misc.OriginalURL)
	assert.NotEmpty(t, relayMsg.Misc.TimePassed)

	// Verify annotated artifact in object storage
	objectKey := "cust-1/354123456789012/03/20250315/354123456789012_20250315_101530.jpg"
	assert.Contains(t, relayMsg.Misc.AnnotatedURL, objectKey)

	stat, err := minioClientFor(t, minioEndpoint).StatObject(ctx, "annotated-faces", objectKey, miniogo.StatObjectOptions{})
	require.NoError(t, err)
	assert.Greater(t, stat.Size, int64(0))

	// Verify detection record in database
	var dbFaceCount int
	var dbIMEI, dbCustomer string
	var dbFaces []byte
	err = pool.QueryRow(ctx,
		"SELECT face_count, device_imei, customer_id, faces_data FROM face_detection_counts WHERE id=$1",
		entity.HashURL(imageURL),
	).Scan(&dbFaceCount, &dbIMEI, &dbCustomer, &dbFaces)
	require.NoError(t, err)
	assert.Equal(t, 1, dbFaceCount)
	assert.Equal(t, "354123456789012", dbIMEI)
	assert.Equal(t, "cust-1", dbCustomer)

	var faces []entity.DetectedFace
	require.NoError(t, json.Unmarshal(dbFaces, &faces))
	require.Len(t, faces, 1)
	assert.Equal(t, [4]int{5, 5, 40, 40}, faces[0].Bbox)
	assert.Equal(t, 0.91, faces[0].Confidence)

	consumerCancel()
	t.Logf("Test passed: %d face relayed, artifact at %s", relayMsg.Misc.Count, relayMsg.Misc.AnnotatedURL)
}

func minioClientFor(t *testing.T, endpoint string) *miniogo.Client {
	t.Helper()
	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)
	return client
}

func TestProcessImageMalformedMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Start RabbitMQ only; a poison message never reaches the other backends.
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "faces.detection")
	require.NoError(t, err)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "faces.processing.dlq")

	log, _ := logger.New("debug")

	// Backends that must never be touched are stubbed with failing handlers.
	failingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for a poison message")
	}))
	defer failingSrv.Close()

	outputDir := t.TempDir()
	localStore, err := storage.NewLocalStore(outputDir, "http://localhost:8080/annotated")
	require.NoError(t, err)

	fetcher := fetch.NewFetcher(5*time.Second, 5_000_000, log)
	det := detector.NewRemoteDetector(failingSrv.URL, detector.InferenceParams{Device: "cpu"}, 5*time.Second)
	relayClient := relay.NewClient("ws://localhost:1/ws", time.Second, false, log)
	defer relayClient.Close()
	notifier := email.NewSMTPNotifier("localhost", 1025, "worker@faces.local", "ops@faces.local", log)

	uc := usecase.NewProcessImageUseCase(
		fetcher, det, localStore, &noopRepo{},
		relayClient, dlqPub, notifier,
		log,
		usecase.ProcessImageConfig{PersistTimeout: 5 * time.Second},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "faces.processing",
		Exchange:    "faces.detection",
		DLQ:         "faces.processing.dlq",
		Prefetch:    1,
		WorkerCount: 1,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	require.NoError(t, pub.PublishJob(ctx, []byte(`{invalid json`)))

	// Wait and verify the message landed in the DLQ
	time.Sleep(2 * time.Second)

	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsg, ok, err := dlqCh.Get("faces.processing.dlq", true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))
	assert.Contains(t, dlqMsg.Headers["x-dlq-reason"], "unmarshal_error")

	consumerCancel()
	t.Log("Test passed: malformed message sent to DLQ")
}

type noopRepo struct{}

func (*noopRepo) Upsert(context.Context, *entity.DetectionRecord) error { return nil }
