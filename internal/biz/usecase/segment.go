package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/metrics"
)

// DefaultChunkSize is the maximum single-message size in characters
const DefaultChunkSize = 500

// SegmentConfig contains segmentation configuration
type SegmentConfig struct {
	ChunkSize       int           // Max characters per message, 0 = DefaultChunkSize
	SendInterval    time.Duration // Min interval between chunk sends, 0 = unpaced
	ReplyBlockWords []string      // Output block-words
}

// Segmenter splits replies into ordered chunks and sends them
type Segmenter struct {
	transport  repo.TransportRepo
	chunkSize  int
	blockWords []string
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewSegmenter creates a new segmenter
func NewSegmenter(transport repo.TransportRepo, cfg SegmentConfig, log *zap.Logger) *Segmenter {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}
	return &Segmenter{
		transport:  transport,
		chunkSize:  size,
		blockWords: cfg.ReplyBlockWords,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.Named("segmenter"),
	}
}

// Blocked checks if a reply contains an output block-word
func (s *Segmenter) Blocked(reply string) bool {
	return containsAny(reply, s.blockWords)
}

// Split cuts a reply into chunks of at most chunkSize characters
// A blocked reply yields no chunks.
func (s *Segmenter) Split(reply string) []string {
	if s.Blocked(reply) {
		return nil
	}

	rest := []rune(reply)
	var chunks []string
	for len(rest) > s.chunkSize {
		chunks = append(chunks, string(rest[:s.chunkSize]))
		rest = rest[s.chunkSize:]
	}
	return append(chunks, string(rest))
}

// Say sends a reply to dest, chunk by chunk and in order
// The first failing chunk aborts the rest.
func (s *Segmenter) Say(ctx context.Context, dest domain.Talker, reply string) error {
	if s.Blocked(reply) {
		metrics.RepliesBlocked.Inc()
		s.log.Warn("reply contains block-word, suppressed",
			zap.Stringer("dest", dest), zap.String("reply", reply))
		return nil
	}
	if reply == "" {
		return nil
	}

	chunks := s.Split(reply)
	for i, chunk := range chunks {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait send slot: %w", err)
		}
		if err := s.transport.Send(ctx, dest, chunk); err != nil {
			metrics.SendFailures.Inc()
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
		metrics.ChunksSent.Inc()
	}
	return nil
}
