package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/reelcut/reelcut-agent/internal/compile"
)

// FFmpeg runs renders by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpegPath   string
	ffprobePath  string
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewFFmpeg(ffmpegPath, ffprobePath string, probeTimeout time.Duration, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:   ffmpegPath,
		ffprobePath:  ffprobePath,
		probeTimeout: probeTimeout,
		logger:       logger.With("component", "engine"),
	}
}

// Execute translates the compiled operations into ffmpeg invocations.
// Trims run stream-copy per clip, the concat demuxer joins the pieces,
// and a single finishing pass applies filters, overlays, scaling and
// the audio mux. Progress is reported per completed invocation.
func (f *FFmpeg) Execute(ctx context.Context, req Request) error {
	plan, err := buildPlan(req)
	if err != nil {
		return err
	}

	total := len(plan.trims) + 2 // trims + concat + finish
	done := 0
	report := func() {
		done++
		if req.OnProgress != nil {
			req.OnProgress(done * 100 / total)
		}
	}

	// Per-clip trims, stream copy.
	for _, t := range plan.trims {
		src, ok := req.Sources[t.SourceID]
		if !ok {
			return &Error{Op: compile.OpTrim, Err: fmt.Errorf("source %s not staged", t.SourceID)}
		}
		out := filepath.Join(req.WorkDir, "clip_"+t.ClipID+".mp4")
		args := []string{
			"-y",
			"-ss", formatSeconds(t.TrimStart),
			"-t", formatSeconds(t.TrimEnd - t.TrimStart),
			"-i", src,
			"-c", "copy",
			out,
		}
		if err := f.run(ctx, args); err != nil {
			return &Error{Op: compile.OpTrim, Err: err}
		}
		plan.segments[t.ClipID] = out
		report()
	}

	// Concat demuxer over the trimmed segments.
	listPath := filepath.Join(req.WorkDir, "concat.txt")
	if err := writeConcatList(listPath, plan.concatOrder, plan.segments); err != nil {
		return &Error{Op: compile.OpConcat, Err: err}
	}
	joined := filepath.Join(req.WorkDir, "joined.mp4")
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		joined,
	}
	if err := f.run(ctx, args); err != nil {
		return &Error{Op: compile.OpConcat, Err: err}
	}
	report()

	// Finishing pass: video filters plus optional audio replacement.
	finish := []string{"-y", "-i", joined}
	if plan.audioPath != "" {
		finish = append(finish, "-i", plan.audioPath)
	}
	chain := plan.filterChain()
	if chain != "" {
		finish = append(finish, "-vf", chain)
	}
	if plan.audioPath != "" {
		finish = append(finish, "-map", "0:v:0", "-map", "1:a:0", "-c:a", "aac", "-shortest")
	}
	if chain == "" {
		finish = append(finish, "-c:v", "copy")
	}
	finish = append(finish, req.OutputPath)
	if err := f.run(ctx, finish); err != nil {
		return &Error{Op: plan.finishKind(), Err: err}
	}
	report()
	return nil
}

// Probe reads duration and stream geometry via ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, filePath string) (*ProbeInfo, error) {
	if f.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.probeTimeout)
		defer cancel()
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}
	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filepath.Base(filePath), err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &ProbeInfo{}
	if result.Format.Duration != "" {
		d, err := strconv.ParseFloat(result.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", result.Format.Duration, err)
		}
		info.Duration = d
	}
	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	f.logger.Debug("running ffmpeg", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLines(stderr.String(), 3))
	}
	return nil
}

// plan is the staged view of a compiled operation list.
type plan struct {
	trims       []compile.Op
	concatOrder []string
	segments    map[string]string
	vfOps       []compile.Op
	audioPath   string
}

func buildPlan(req Request) (*plan, error) {
	p := &plan{segments: make(map[string]string)}
	for _, op := range req.Ops {
		switch op.Kind {
		case compile.OpDecode:
			// Decoding is implicit in the per-clip trim invocations.
		case compile.OpTrim:
			p.trims = append(p.trims, op)
		case compile.OpConcat:
			p.concatOrder = append([]string(nil), op.ClipIDs...)
		case compile.OpFilter, compile.OpDrawText, compile.OpScale:
			p.vfOps = append(p.vfOps, op)
		case compile.OpMuxAudio:
			path, ok := req.Sources[op.SourceID]
			if !ok {
				return nil, &Error{Op: compile.OpMuxAudio, Err: fmt.Errorf("audio source %s not staged", op.SourceID)}
			}
			p.audioPath = path
		default:
			return nil, fmt.Errorf("engine: unsupported operation %q", op.Kind)
		}
	}
	if len(p.trims) == 0 || len(p.concatOrder) == 0 {
		return nil, fmt.Errorf("engine: operation list has no clips to render")
	}
	return p, nil
}

func (p *plan) filterChain() string {
	var parts []string
	for _, op := range p.vfOps {
		switch op.Kind {
		case compile.OpFilter:
			parts = append(parts, fmt.Sprintf("eq=brightness=%s:contrast=%s:saturation=%s",
				formatFloat(op.Brightness-1), formatFloat(op.Contrast), formatFloat(op.Saturation)))
		case compile.OpDrawText:
			parts = append(parts, drawTextFilter(op))
		case compile.OpScale:
			parts = append(parts, fmt.Sprintf("scale=%d:%d", op.Width, op.Height))
		}
	}
	return strings.Join(parts, ",")
}

func (p *plan) finishKind() compile.OpKind {
	if len(p.vfOps) > 0 {
		return p.vfOps[0].Kind
	}
	if p.audioPath != "" {
		return compile.OpMuxAudio
	}
	return compile.OpConcat
}

func drawTextFilter(op compile.Op) string {
	var b strings.Builder
	b.WriteString("drawtext=text='")
	b.WriteString(escapeDrawText(op.Text))
	b.WriteString("'")
	fmt.Fprintf(&b, ":x=%s:y=%s", formatFloat(op.X), formatFloat(op.Y))
	if op.FontSize > 0 {
		fmt.Fprintf(&b, ":fontsize=%d", op.FontSize)
	}
	if op.Color != "" {
		fmt.Fprintf(&b, ":fontcolor=%s", op.Color)
	}
	// between() is inclusive at both ends; the visibility window is
	// half-open, so the upper bound uses a strict lt().
	fmt.Fprintf(&b, ":enable='gte(t,%s)*lt(t,%s)'", formatSeconds(op.From), formatSeconds(op.To))
	return b.String()
}

// escapeDrawText neutralizes the characters drawtext treats as filter
// syntax so overlay content cannot alter the filter graph.
func escapeDrawText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`,`, `\,`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

func writeConcatList(path string, order []string, segments map[string]string) error {
	var b strings.Builder
	for _, clipID := range order {
		seg, ok := segments[clipID]
		if !ok {
			return fmt.Errorf("no trimmed segment for clip %s", clipID)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(seg, "'", `'\''`))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
