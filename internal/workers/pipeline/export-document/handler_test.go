package exportdocument

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarity-workers/internal/catalog"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/validation"
	"clarity-workers/internal/delivery"
	"clarity-workers/internal/document"
	"clarity-workers/internal/models"
	"clarity-workers/internal/service"
	"clarity-workers/internal/session"
)

type exportPipeline struct {
	sessions   map[string]*models.Session
	generator  *document.Generator
	lookup     *catalog.Lookup
	recipients []string
}

func (p *exportPipeline) Load(_ context.Context, id string) (*models.Session, error) {
	s, ok := p.sessions[id]
	if !ok {
		return nil, errors.NewSessionNotFoundError(id)
	}
	return s, nil
}

func (p *exportPipeline) Export(ctx context.Context, s *models.Session, outputID, format, recipient string) (*service.ExportResult, error) {
	exp, err := p.generator.Export(ctx, s, p.lookup, outputID, format)
	if err != nil {
		return nil, err
	}
	p.recipients = append(p.recipients, recipient)
	return &service.ExportResult{
		Export:   exp,
		Delivery: delivery.Result{DocumentID: "doc-1", Indexed: true, Emailed: recipient != ""},
	}, nil
}

func newPipeline(t *testing.T) *exportPipeline {
	log := logger.NewTestLogger(t)
	s := session.StartNew("default", "1.0", time.Now())
	s.SessionID = "s1"
	s = session.RecordAnswer(s, "q1", "Scheduling is manual", "", time.Now())

	return &exportPipeline{
		sessions:  map[string]*models.Session{"s1": s},
		generator: document.NewGenerator(document.NewAdapter(document.StubTranslator{}, document.NewMemoryCache(), log), log),
		lookup: catalog.NewLookup(nil, nil,
			[]models.TemplateConfig{{ID: "brief", Locale: "en", Body: `<h2>Problem</h2><p>{{rawAnswers.q1}}</p>`}},
			[]models.OutputConfig{{ID: "product-brief", TemplateID: "brief"}},
			nil),
	}
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		wantErr  errors.ErrorCode
		validate func(t *testing.T, out *Output)
	}{
		{
			name:  "markdown by default",
			input: Input{SessionID: "s1", Recipient: "pm@example.com"},
			validate: func(t *testing.T, out *Output) {
				assert.Equal(t, "md", out.Format)
				assert.Equal(t, "product-brief-s1.md", out.Filename)
				assert.Contains(t, out.Text, "## Problem")
				assert.Contains(t, out.Text, "Scheduling is manual")
				assert.False(t, out.Placeholder)
				assert.Equal(t, "doc-1", out.DocumentID)
				assert.True(t, out.Indexed)
				assert.True(t, out.Emailed)
			},
		},
		{
			name:  "pdf is a placeholder",
			input: Input{SessionID: "s1", Format: "pdf"},
			validate: func(t *testing.T, out *Output) {
				assert.Equal(t, "application/pdf", out.ContentType)
				assert.True(t, out.Placeholder)
				assert.Empty(t, out.Text)
				assert.False(t, out.Emailed)
			},
		},
		{name: "unsupported format", input: Input{SessionID: "s1", Format: "odt"}, wantErr: errors.ErrCodeUnsupportedFormat},
		{name: "unknown session", input: Input{SessionID: "zz"}, wantErr: errors.ErrCodeSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(nil), newPipeline(t), logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &tt.input)
			if tt.wantErr != "" {
				assert.True(t, errors.HasCode(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s1", out.SessionID)
			tt.validate(t, out)
		})
	}
}

func TestHandler_PassesRecipient(t *testing.T) {
	p := newPipeline(t)
	h := NewHandler(LoadConfig(nil), p, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{SessionID: "s1", Recipient: "pm@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pm@example.com"}, p.recipients)
}

func TestInputSchema(t *testing.T) {
	schema := InputSchema()
	assert.True(t, validation.ValidateInput(map[string]interface{}{"sessionId": "s1"}, schema).Valid)
	assert.False(t, validation.ValidateInput(map[string]interface{}{"format": "md"}, schema).Valid)
}
