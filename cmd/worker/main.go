package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/delve-hq/delve/backend/internal/queue"
	"github.com/delve-hq/delve/backend/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/delve-hq/delve/backend/pkg/ai"
	oai "github.com/delve-hq/delve/backend/pkg/ai/ollama"
	gai "github.com/delve-hq/delve/backend/pkg/ai/openai"
	"github.com/delve-hq/delve/backend/pkg/engine"
	"github.com/delve-hq/delve/backend/pkg/interview"
	"github.com/delve-hq/delve/backend/pkg/leaselock"
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/logger/console"
	"github.com/delve-hq/delve/backend/pkg/methodology"
	storepgx "github.com/delve-hq/delve/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// InterviewAIClient
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.InterviewAIClient

	switch adapter {
	case "ollama":
		client, err := oai.NewInterviewOllamaClient(oai.NewInterviewOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			AnalysisModel:  util.GetEnv("AI_CHAT_ANALYSIS_MODEL"),
			QuestionModel:  util.GetEnv("AI_CHAT_QUESTION_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_MAX_CONCURRENT", 2)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewInterviewOpenAIClient(gai.NewInterviewOpenAIClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			AnalysisModel:  util.GetEnv("AI_CHAT_ANALYSIS_MODEL"),
			QuestionModel:  util.GetEnv("AI_CHAT_QUESTION_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()
	pgConn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	storage, err := storepgx.NewInterviewDBStorageWithConnection(ctx, pgConn, aiClient)
	if err != nil {
		logger.Fatal("Failed to create storage", "err", err)
	}

	methodologies, err := methodology.DefaultRegistry()
	if err != nil {
		logger.Fatal("Failed to load methodologies", "err", err)
	}
	if dir := util.GetEnv("METHODOLOGY_DIR"); dir != "" {
		extra, err := methodology.LoadDir(dir)
		if err != nil {
			logger.Fatal("Failed to load methodology dir", "dir", dir, "err", err)
		}
		for _, id := range extra.IDs() {
			m, err := extra.Get(id)
			if err != nil {
				logger.Fatal("Failed to read methodology", "id", id, "err", err)
			}
			if err := methodologies.Add(m); err != nil {
				logger.Fatal("Duplicate methodology", "id", id, "err", err)
			}
		}
	}

	detectors, err := engine.DefaultDetectorRegistry(engine.DetectorOptions{
		TokenEncoding: util.GetEnvString("AI_TOKEN_ENCODING", "o200k_base"),
	})
	if err != nil {
		logger.Fatal("Failed to build detector registry", "err", err)
	}

	interviewClient, err := interview.NewClient(interview.NewClientParams{
		AIClient:      aiClient,
		Storage:       storage,
		Methodologies: methodologies,
		Detectors:     detectors,
	})
	if err != nil {
		logger.Fatal("Failed to create interview client", "err", err)
	}

	locks := leaselock.New(pgConn)

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.TurnQueue}
	err = queue.SetupQueues(ch, queues)
	if err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one turn is in flight
	// per worker process.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				processingErr := queue.ProcessTurnMessage(ctx, interviewClient, locks, string(qm.msg.Body))

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", formatDuration(aiDuration),
				)

				logger.Info(
					"Processing time",
					"duration", formatDuration(time.Since(startTime)),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// If message has been retried 10 times, send to dead-letter
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
