package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"z-story-studio/internal/domain/entity"
	"z-story-studio/internal/domain/service"
	apperrors "z-story-studio/pkg/errors"
	"z-story-studio/pkg/logger"
	"z-story-studio/pkg/metrics"
	"z-story-studio/pkg/tracer"
)

const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

// generation_total 的 status 标签
const (
	statusSuccess       = "success"
	statusInvalid       = "invalid"
	statusConfigError   = "config_error"
	statusProviderError = "provider_error"
)

// CredentialSource 按后端家族提供 API Key
type CredentialSource interface {
	Credential(family entity.BackendFamily) (string, bool)
	KeyName(family entity.BackendFamily) string
}

// DispatchRequest 一次分发所需的全部输入
type DispatchRequest struct {
	// Kind 为 service.WorkflowFresh 或 service.WorkflowRevision
	Kind         string
	Model        entity.ModelID
	Conversation *Conversation
	// Temperature 为 nil 时 chat-completion 家族使用默认值
	Temperature *float64
}

// Dispatcher 按模型选择后端家族，调用成功后把记录追加到会话
type Dispatcher struct {
	catalog            *entity.Catalog
	creds              CredentialSource
	backends           map[entity.BackendFamily]service.CompletionBackend
	defaultTemperature float64

	now   func() time.Time
	newID func() string
}

func NewDispatcher(
	catalog *entity.Catalog,
	creds CredentialSource,
	backends map[entity.BackendFamily]service.CompletionBackend,
	defaultTemperature float64,
) *Dispatcher {
	return &Dispatcher{
		catalog:            catalog,
		creds:              creds,
		backends:           backends,
		defaultTemperature: defaultTemperature,
		now:                time.Now,
		newID:              uuid.NewString,
	}
}

// Dispatch 执行一次生成。失败时会话不变
func (d *Dispatcher) Dispatch(ctx context.Context, session *entity.Session, req *DispatchRequest) (rec *entity.StoryRecord, err error) {
	if session == nil || req == nil || req.Conversation == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("session and conversation are required")
	}

	kind := req.Kind
	if kind == "" {
		kind = service.WorkflowFresh
	}
	modelLabel := string(req.Model)

	ctx, span := tracer.Start(ctx, "story.dispatch")
	span.SetAttributes(
		attribute.String("story.kind", kind),
		attribute.String("story.model", modelLabel),
		attribute.String("story.session_id", session.ID),
		attribute.Int("story.turns", len(req.Conversation.Turns)),
	)
	defer func() { tracer.End(span, err) }()

	spec, ok := d.catalog.Lookup(req.Model)
	if !ok {
		metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusInvalid).Inc()
		return nil, apperrors.ErrInvariantViolation.WithDetail(fmt.Sprintf("unknown model %q", req.Model))
	}
	span.SetAttributes(attribute.String("story.family", string(spec.Family)))

	backend, ok := d.backends[spec.Family]
	if !ok || backend == nil {
		metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusInvalid).Inc()
		return nil, apperrors.ErrInvariantViolation.WithDetail(fmt.Sprintf("no backend for family %q", spec.Family))
	}

	temperature, err := d.resolveTemperature(spec, req.Temperature)
	if err != nil {
		metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusInvalid).Inc()
		return nil, err
	}

	for _, id := range req.Conversation.DerivedFrom {
		if _, ok := session.Record(id); !ok {
			metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusInvalid).Inc()
			return nil, apperrors.ErrInvariantViolation.WithDetail(fmt.Sprintf("context record %s is not in session", id))
		}
	}

	apiKey, ok := d.creds.Credential(spec.Family)
	if !ok {
		metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusConfigError).Inc()
		return nil, apperrors.ErrConfiguration.WithDetail(
			fmt.Sprintf("%s is not set; model %s is unavailable", d.creds.KeyName(spec.Family), spec.ID))
	}

	ctx = service.WithWorkflow(ctx, kind)
	ctx = service.WithModel(ctx, modelLabel)

	start := time.Now()
	out, callErr := backend.Complete(ctx, &service.CompletionRequest{
		APIKey:        apiKey,
		ProviderModel: spec.ProviderModel,
		SystemPrompt:  req.Conversation.SystemPrompt,
		Turns:         req.Conversation.Turns,
		Temperature:   temperature,
	})
	elapsed := time.Since(start).Seconds()
	family := string(spec.Family)
	metrics.LLMCallDuration.WithLabelValues(family, spec.ProviderModel).Observe(elapsed)

	if callErr == nil && (out == nil || strings.TrimSpace(out.Text) == "") {
		callErr = fmt.Errorf("provider returned an empty completion")
	}
	if callErr != nil {
		metrics.LLMCallTotal.WithLabelValues(family, spec.ProviderModel, "error").Inc()
		metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusProviderError).Inc()
		return nil, apperrors.ErrLLMProvider.WithError(callErr)
	}

	metrics.LLMCallTotal.WithLabelValues(family, spec.ProviderModel, "success").Inc()
	metrics.LLMTokensUsed.WithLabelValues(family, spec.ProviderModel, "prompt").Add(float64(out.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(family, spec.ProviderModel, "completion").Add(float64(out.CompletionTokens))

	rec = &entity.StoryRecord{
		ID:           d.newID(),
		CreatedAt:    d.now(),
		Instruction:  req.Conversation.Instruction,
		SystemPrompt: req.Conversation.SystemPrompt,
		Model:        spec.ID,
		Temperature:  temperature,
		Content:      out.Text,
		DerivedFrom:  append([]string{}, req.Conversation.DerivedFrom...),
	}
	session.Append(rec)

	metrics.StoryGenerationTotal.WithLabelValues(kind, modelLabel, statusSuccess).Inc()
	metrics.StoryGenerationDuration.WithLabelValues(kind, modelLabel).Observe(elapsed)
	metrics.StoryWordCount.WithLabelValues(modelLabel).Observe(float64(len(strings.Fields(out.Text))))

	logger.Info(ctx, "story generated",
		"session_id", session.ID,
		"record_id", rec.ID,
		"kind", kind,
		"model", modelLabel,
		"derived_from", len(rec.DerivedFrom),
		"duration_ms", int64(elapsed*1000),
	)
	return rec, nil
}

// resolveTemperature messages 家族不使用温度，返回 nil
func (d *Dispatcher) resolveTemperature(spec entity.ModelSpec, t *float64) (*float64, error) {
	if !spec.SupportsTemperature() {
		return nil, nil
	}
	v := d.defaultTemperature
	if t != nil {
		v = *t
	}
	if v < minTemperature || v > maxTemperature {
		return nil, apperrors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("temperature must be between %.1f and %.1f", minTemperature, maxTemperature))
	}
	return &v, nil
}
