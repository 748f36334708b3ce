package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pipartner/api/internal/session"
	"pipartner/api/internal/util"
)

var batches sync.Map // key -> *photoBatch

const maxPhotoBytes = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message, fileID string) {
	cid := msg.Chat.ID
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.logger().Warn("get file failed", zap.Int64("chat_id", cid), zap.Error(err))
		r.send(cid, msgFailure)
		return
	}
	imgBytes, err := r.download(ctx, url)
	if err != nil {
		r.logger().Warn("download failed", zap.Int64("chat_id", cid), zap.Error(err))
		r.send(cid, msgFailure)
		return
	}

	key := "chat:" + strconv.FormatInt(cid, 10)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	// a batch drained between lookup and add is closed; retry on a fresh one
	for {
		bi, _ := batches.LoadOrStore(key, &photoBatch{ChatID: cid, Key: key, MediaGroupID: msg.MediaGroupID})
		b := bi.(*photoBatch)
		n, ok := b.add(imgBytes, msg.Caption, func() { r.processBatch(context.WithoutCancel(ctx), b) })
		if !ok {
			batches.CompareAndDelete(key, b)
			continue
		}
		if n == 1 {
			r.send(cid, msgPhotoAlbum)
		}
		return
	}
}

func (r *Router) processBatch(ctx context.Context, b *photoBatch) {
	batches.CompareAndDelete(b.Key, b)
	images, caption := b.drain()
	if len(images) == 0 {
		return
	}

	img := images[0]
	if len(images) > 1 {
		merged, err := combineAsOne(images)
		if err != nil {
			r.logger().Warn("merge pages failed", zap.Int64("chat_id", b.ChatID), zap.Int("pages", len(images)), zap.Error(err))
			r.send(b.ChatID, "Could not glue the pages together. Try sending them one by one.")
			return
		}
		img = merged
	}

	r.solve(ctx, b.ChatID, session.Params{Problem: caption, Image: util.EncodeImage(img)})
}

// combineAsOne stacks pages vertically on white, centred, and scales the
// result down to maxPixels.
func combineAsOne(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	widths := make([]int, 0, len(images))
	heights := make([]int, 0, len(images))

	for _, b := range images {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			if try, err2 := tryDecodeStrict(b); err2 == nil {
				img = try
			} else {
				return nil, err
			}
		}
		decoded = append(decoded, img)
		bounds := img.Bounds()
		widths = append(widths, bounds.Dx())
		heights = append(heights, bounds.Dy())
	}

	maxW := 0
	sumH := 0
	for i := range decoded {
		if widths[i] > maxW {
			maxW = widths[i]
		}
		sumH += heights[i]
	}
	if maxW == 0 || sumH == 0 {
		return nil, errors.New("empty images")
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	y := 0
	for i, img := range decoded {
		w := widths[i]
		h := heights[i]
		x := (maxW - w) / 2
		rect := image.Rect(x, y, x+w, y+h)
		draw.Draw(dst, rect, img, img.Bounds().Min, draw.Over)
		y += h
	}

	totalPx := maxW * sumH
	final := image.Image(dst)
	if totalPx > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(totalPx))
		newW := int(float64(maxW)*scale + 0.5)
		newH := int(float64(sumH)*scale + 0.5)
		if newW < 1 {
			newW = 1
		}
		if newH < 1 {
			newH = 1
		}
		final = scaleDownNN(dst, newW, newH)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func tryDecodeStrict(b []byte) (image.Image, error) {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return jpeg.Decode(bytes.NewReader(b))
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return png.Decode(bytes.NewReader(b))
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

func scaleDownNN(src image.Image, newW, newH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	sb := src.Bounds()
	srcW := sb.Dx()
	srcH := sb.Dy()
	for y := 0; y < newH; y++ {
		sy := sb.Min.Y + (y*srcH)/newH
		for x := 0; x < newW; x++ {
			sx := sb.Min.X + (x*srcW)/newW
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	if r.Download != nil {
		return r.Download(ctx, url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
