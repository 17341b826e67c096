package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/persistence"
	tapi "github.com/airenas/revu/internal/pkg/transcriber/api"
)

// Kind tags one stage outcome
type Kind int

const (
	// Success - stage produced real text
	Success Kind = iota + 1
	// Degraded - stage failed, text is a diagnostic placeholder or
	// carries a diagnostic note
	Degraded
	// Fatal - stage failed and the submission must be aborted
	Fatal
)

// Result is a tagged per-stage outcome passed through the pipeline
type Result struct {
	Kind Kind
	Text string
	Err  error
}

type stageFn func(context.Context, Result) Result

// chain runs stages strictly sequentially. A non-success result stops
// the remaining stages
func chain(ctx context.Context, in Result, stages ...stageFn) Result {
	res := in
	for _, s := range stages {
		if res.Kind != Success {
			return res
		}
		res = s(ctx, res)
	}
	return res
}

// TranscriberProvider returns an active transcriber instance
type TranscriberProvider interface {
	Get(srv string, allowNew bool) (tapi.Transcriber, string, error)
}

// Translator translates text between languages
type Translator interface {
	Translate(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

// Orchestrator runs the transcription/translation sequence for one review.
// Stage failures degrade to diagnostic text, they never abort the submission
type Orchestrator struct {
	provider          TranscriberProvider
	translator        Translator
	targetLang        string
	transcribeTimeout time.Duration
	manualStatusCheck time.Duration
}

// NewOrchestrator creates an orchestrator instance
func NewOrchestrator(provider TranscriberProvider, translator Translator, targetLang string) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("no transcriber provider")
	}
	if translator == nil {
		return nil, fmt.Errorf("no translator")
	}
	if targetLang == "" {
		return nil, fmt.Errorf("no target language")
	}
	return &Orchestrator{provider: provider, translator: translator, targetLang: targetLang,
		transcribeTimeout: time.Minute * 5, manualStatusCheck: time.Second * 20}, nil
}

// WithTranscribeTimeout sets the transcription await limit
func (o *Orchestrator) WithTranscribeTimeout(d time.Duration) *Orchestrator {
	o.transcribeTimeout = d
	return o
}

// Run awaits transcription and conditionally translation for uploaded audio.
// The returned Final text is always printable - on failure it is a
// diagnostic placeholder
func (o *Orchestrator) Run(ctx context.Context, audio *tapi.UploadData, lang string) *persistence.TranscriptionResult {
	res := &persistence.TranscriptionResult{}
	tRes := chain(ctx, Result{Kind: Success},
		func(ctx context.Context, in Result) Result { return o.transcribe(ctx, audio, lang) })
	if tRes.Kind != Success {
		goapp.Log.Warn().Err(tRes.Err).Msg("transcription degraded")
		res.Final = tRes.Text
		res.Degraded = true
		return res
	}
	res.Original = tRes.Text
	fRes := chain(ctx, tRes,
		func(ctx context.Context, in Result) Result { return o.translate(ctx, in, lang) })
	res.Final = fRes.Text
	res.Degraded = fRes.Kind != Success
	if fRes.Kind != Success {
		goapp.Log.Warn().Err(fRes.Err).Msg("translation degraded")
	}
	return res
}

func (o *Orchestrator) transcribe(ctx context.Context, audio *tapi.UploadData, lang string) Result {
	ctx, cancelF := context.WithTimeout(ctx, o.transcribeTimeout)
	defer cancelF()
	tr, srv, err := o.provider.Get("", true)
	if err != nil || tr == nil {
		if err == nil {
			err = fmt.Errorf("no transcription service available")
		}
		return degradedTranscription(err)
	}
	goapp.Log.Info().Str("srv", srv).Msg("using transcriber")
	extID, err := tr.Upload(ctx, audio)
	if err != nil {
		return degradedTranscription(fmt.Errorf("can't upload: %w", err))
	}
	defer func() {
		// fresh context - clean should run even after await timeout
		clCtx, clCf := context.WithTimeout(context.Background(), time.Second*30)
		defer clCf()
		if err := tr.Clean(clCtx, extID); err != nil {
			goapp.Log.Warn().Err(err).Str("extID", extID).Msg("can't clean external data")
		}
	}()
	text, err := o.waitResult(ctx, tr, extID)
	if err != nil {
		return degradedTranscription(err)
	}
	return Result{Kind: Success, Text: text}
}

func degradedTranscription(err error) Result {
	return Result{Kind: Degraded, Text: fmt.Sprintf("Transcription failed: %v", err), Err: err}
}

func (o *Orchestrator) translate(ctx context.Context, in Result, lang string) Result {
	if lang == o.targetLang {
		// no call needed
		return in
	}
	translated, err := o.translator.Translate(ctx, in.Text, lang, o.targetLang)
	if err != nil {
		// keep the transcript, attach a diagnostic note
		return Result{Kind: Degraded, Text: fmt.Sprintf("%s (translation failed: %v)", in.Text, err), Err: err}
	}
	return Result{Kind: Success, Text: translated}
}

// waitResult awaits transcription completion via the status ws with a
// manual poll fallback
func (o *Orchestrator) waitResult(ctx context.Context, tr tapi.Transcriber, extID string) (string, error) {
	stCh, cf, err := tr.HookToStatus(ctx, extID)
	if err != nil {
		return "", fmt.Errorf("can't hook to status: %w", err)
	}
	defer cf()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("timeout waiting for transcription")
		case d, ok := <-stCh:
			if !ok {
				return "", fmt.Errorf("status channel closed")
			}
			if finish, text, err := takeResult(&d); finish {
				return text, err
			}
		case <-time.After(o.manualStatusCheck):
			goapp.Log.Info().Str("extID", extID).Msg("manual status check")
			d, err := tr.GetStatus(ctx, extID)
			if err != nil {
				return "", fmt.Errorf("can't get status: %w", err)
			}
			if finish, text, err := takeResult(d); finish {
				return text, err
			}
		}
	}
}

func takeResult(d *tapi.StatusData) (bool, string, error) {
	if d.Error != "" {
		return true, "", fmt.Errorf("transcription error: %s", d.Error)
	}
	if isCompleted(d.Status) {
		return true, d.RecognizedText, nil
	}
	return false, "", nil
}

func isCompleted(st string) bool {
	return st == "COMPLETED"
}
