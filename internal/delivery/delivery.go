// Package delivery hands exported documents to downstream channels: a
// search index, an SNS topic and email. Every channel is best effort.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/document"
)

// EventDocumentGenerated is the eventType attribute of published events.
const EventDocumentGenerated = "document.generated"

const (
	ChannelIndex = "index"
	ChannelSNS   = "sns"
	ChannelEmail = "email"
)

// DocumentIndexer is satisfied by database.ElasticsearchClient.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Request names what to deliver. Recipient is optional; without it no
// email is sent.
type Request struct {
	SessionID string
	OutputID  string
	Recipient string
	Export    *document.Export
}

// Result reports which channels accepted the document.
type Result struct {
	DocumentID string `json:"documentId"`
	Indexed    bool   `json:"indexed"`
	Notified   bool   `json:"notified"`
	Emailed    bool   `json:"emailed"`
}

// IndexedDocument is the search index representation of an export.
type IndexedDocument struct {
	DocumentID     string                  `json:"documentId"`
	SessionID      string                  `json:"sessionId"`
	OutputID       string                  `json:"outputId"`
	Format         string                  `json:"format"`
	Content        string                  `json:"content,omitempty"`
	Overridden     bool                    `json:"overridden"`
	OutputLanguage string                  `json:"outputLanguage"`
	Translated     bool                    `json:"translated"`
	Sections       []string                `json:"sections"`
	Analysis       document.AnalysisCounts `json:"analysisResults"`
	ExportedAt     time.Time               `json:"exportedAt"`
}

type event struct {
	EventType  string    `json:"eventType"`
	DocumentID string    `json:"documentId"`
	SessionID  string    `json:"sessionId"`
	OutputID   string    `json:"outputId"`
	Format     string    `json:"format"`
	Filename   string    `json:"filename"`
	ExportedAt time.Time `json:"exportedAt"`
}

type Service struct {
	cfg     config.DeliveryConfig
	indexer DocumentIndexer
	sns     SNSService
	ses     SESService
	log     logger.Logger
}

// NewService wires the channels that are both enabled in cfg and have a
// client. Nil clients disable their channel.
func NewService(cfg config.DeliveryConfig, indexer DocumentIndexer, snsClient SNSService, sesClient SESService, log logger.Logger) *Service {
	if cfg.Index == "" {
		cfg.Index = "clarity-documents"
	}
	return &Service{
		cfg:     cfg,
		indexer: indexer,
		sns:     snsClient,
		ses:     sesClient,
		log:     log.WithFields(map[string]interface{}{"component": "delivery"}),
	}
}

// Deliver pushes req to every configured channel. Failures are logged and
// counted; they never fail the export.
func (s *Service) Deliver(ctx context.Context, req Request) Result {
	res := Result{DocumentID: uuid.New().String()}
	if req.Export == nil {
		return res
	}

	if s.cfg.IndexEnabled && s.indexer != nil {
		res.Indexed = s.attempt(ChannelIndex, req, func() error {
			return s.indexer.IndexDocument(ctx, s.cfg.Index, res.DocumentID, toIndexed(res.DocumentID, req))
		})
	}
	if s.cfg.SNSEnabled && s.sns != nil && s.cfg.SNSTopicARN != "" {
		res.Notified = s.attempt(ChannelSNS, req, func() error {
			return s.publish(ctx, res.DocumentID, req)
		})
	}
	if s.cfg.SESEnabled && s.ses != nil && req.Recipient != "" {
		res.Emailed = s.attempt(ChannelEmail, req, func() error {
			return s.email(ctx, req)
		})
	}
	return res
}

func (s *Service) attempt(channel string, req Request, fn func() error) bool {
	if err := fn(); err != nil {
		metrics.DeliveryAttempts.WithLabelValues(channel, "failed").Inc()
		s.log.Warn("Document delivery failed", map[string]interface{}{
			"channel":   channel,
			"sessionId": req.SessionID,
			"format":    req.Export.Format,
			"error":     err.Error(),
		})
		return false
	}
	metrics.DeliveryAttempts.WithLabelValues(channel, "delivered").Inc()
	return true
}

func toIndexed(id string, req Request) IndexedDocument {
	exp := req.Export
	return IndexedDocument{
		DocumentID:     id,
		SessionID:      req.SessionID,
		OutputID:       req.OutputID,
		Format:         exp.Format,
		Content:        exp.Text,
		Overridden:     exp.Overridden,
		OutputLanguage: exp.Metadata.OutputLanguage,
		Translated:     exp.Metadata.Translated,
		Sections:       exp.Metadata.Sections,
		Analysis:       exp.Metadata.AnalysisResults,
		ExportedAt:     exp.Metadata.ExportedAt,
	}
}

func (s *Service) publish(ctx context.Context, documentID string, req Request) error {
	body, err := json.Marshal(event{
		EventType:  EventDocumentGenerated,
		DocumentID: documentID,
		SessionID:  req.SessionID,
		OutputID:   req.OutputID,
		Format:     req.Export.Format,
		Filename:   req.Export.Filename,
		ExportedAt: req.Export.Metadata.ExportedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = s.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.cfg.SNSTopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(EventDocumentGenerated)},
			"format":    {DataType: aws.String("String"), StringValue: aws.String(req.Export.Format)},
		},
	})
	return err
}

func (s *Service) email(ctx context.Context, req Request) error {
	exp := req.Export
	subject := fmt.Sprintf("Your product brief (%s)", strings.ToUpper(exp.Format))

	var text string
	if exp.Text != "" {
		text = exp.Text
	} else {
		text = fmt.Sprintf("Your %s export %s is ready. Download it from the session %s.",
			strings.ToUpper(exp.Format), exp.Filename, req.SessionID)
	}

	_, err := s.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{ToAddresses: []string{req.Recipient}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(text)},
			},
		},
		Source: aws.String(s.cfg.FromEmail),
	})
	return err
}
