package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pipartner/api/internal/util"
)

const geminiInstruction = `You are PiPartner, a patient math and science tutor.
Explain the solution of the student's problem step by step.
Write formulas in LaTeX: inline as \( ... \), display as \[ ... \]. Use **bold** for step titles.
If the problem is given as a photo, first transcribe it.
If a previous conversation is provided, answer the new message as a follow-up to it.
Return STRICT JSON: {"problem": string, "ocr_result": string, "explanation": string}.
"ocr_result" is the transcribed text of a photo, empty for typed problems.`

// GeminiSolver answers payloads directly with the Gemini API, for deployments
// without an inference endpoint. Replies are decoded by Unwrap like the HTTP ones.
type GeminiSolver struct {
	APIKey string
	Model  string
}

func NewGeminiSolver(apiKey, model string) *GeminiSolver {
	return &GeminiSolver{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (g *GeminiSolver) Solve(ctx context.Context, p Payload) (Envelope, error) {
	if g.APIKey == "" {
		return Envelope{}, errors.New("GEMINI_API_KEY is empty")
	}
	parts, err := promptParts(p)
	if err != nil {
		return Envelope{}, err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return Envelope{}, fmt.Errorf("gemini: client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.2),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(geminiInstruction)}}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return Envelope{}, fmt.Errorf("gemini: generate: %w", err)
	}
	txt := util.StripCodeFences(firstText(resp))
	if txt == "" {
		return Envelope{}, &StatusError{Code: http.StatusBadGateway, Body: "gemini: empty response"}
	}

	env, err := Unwrap([]byte(txt))
	if err != nil {
		// model answered with prose instead of JSON
		env = Envelope{Explanation: txt, Shape: ShapeRaw}
	}
	if !env.OK() {
		return Envelope{}, &StatusError{Code: http.StatusBadGateway, Body: txt}
	}
	return env, nil
}

// promptParts renders the payload as Gemini content: the follow-up context
// first, then the new problem.
func promptParts(p Payload) ([]genai.Part, error) {
	var parts []genai.Part

	if fu := p.Context; fu != nil {
		var b strings.Builder
		b.WriteString("Previous conversation.\nOriginal problem: ")
		if t := strings.TrimSpace(fu.OriginalProblem.Text); t != "" {
			b.WriteString(t)
		} else {
			b.WriteString("(photo below)")
		}
		parts = append(parts, genai.Text(b.String()))
		if fu.OriginalProblem.Image != "" {
			blob, err := imageBlob(fu.OriginalProblem.Image)
			if err != nil {
				return nil, fmt.Errorf("gemini: original image: %w", err)
			}
			parts = append(parts, blob)
		}
		parts = append(parts, genai.Text("Your previous answer:\n"+fu.PreviousResponse))
	}

	switch p.InputType {
	case InputImage:
		blob, err := imageBlob(p.ImageData)
		if err != nil {
			return nil, fmt.Errorf("gemini: image: %w", err)
		}
		parts = append(parts, genai.Text("New problem (photo):"), blob)
	case InputText:
		parts = append(parts, genai.Text("New problem:\n"+p.Problem))
	default:
		return nil, fmt.Errorf("gemini: unknown input_type %q", p.InputType)
	}
	return parts, nil
}

func imageBlob(b64 string) (genai.Blob, error) {
	data, hint, err := util.DecodeBase64MaybeDataURL(b64)
	if err != nil {
		return genai.Blob{}, err
	}
	return genai.Blob{MIMEType: util.PickMIME("", hint, data), Data: data}, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
