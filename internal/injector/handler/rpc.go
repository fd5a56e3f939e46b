package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector"
	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/proto"
)

// RegisterRPC exposes the service on an RPC server for the host hook.
func RegisterRPC(s *grpc.Server, service *injector.Service, notifier *injector.Notifier) {
	s.Register(proto.MethodProcessMessage, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.ProcessMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		return processMessage(ctx, service, req)
	})

	s.Register(proto.MethodStats, func(ctx context.Context, _ json.RawMessage) (any, error) {
		snap, err := service.Registry().Current()
		if err != nil {
			return nil, err
		}
		corpus := snap.Selector.Corpus()
		return proto.StatsResponse{
			Skills:      corpus.TotalDocuments(),
			Fingerprint: corpus.Fingerprint(),
			AvgLength:   corpus.AverageDocumentLength(),
			Terms:       corpus.Vocabulary(),
			Mode:        snap.Selector.Config().Mode(),
			LoadedAt:    snap.LoadedAt.Unix(),
		}, nil
	})

	s.Register(proto.MethodReload, func(ctx context.Context, _ json.RawMessage) (any, error) {
		result, err := service.Registry().Reload(ctx)
		if err != nil {
			return nil, err
		}
		if result.Changed {
			if err := notifier.Notify(ctx, "rpc-reload", result); err != nil {
				return nil, fmt.Errorf("announcing reload: %w", err)
			}
		}
		return proto.ReloadResponse{
			Skills:      result.Skills,
			Fingerprint: result.Fingerprint,
			Changed:     result.Changed,
		}, nil
	})
}

func processMessage(ctx context.Context, service *injector.Service, req proto.ProcessMessageRequest) (proto.ProcessMessageResponse, error) {
	result, err := service.Inject(ctx, req.Message)
	if err != nil {
		return proto.ProcessMessageResponse{}, err
	}
	snap, err := service.Registry().Current()
	if err != nil {
		return proto.ProcessMessageResponse{}, err
	}

	out := proto.ProcessMessageResponse{
		Skills:    make([]proto.Selection, 0, len(result.Selections)),
		Negated:   result.Negated,
		Mode:      result.Mode,
		CacheHit:  result.CacheHit,
		LatencyUs: result.Latency.Microseconds(),
	}
	for _, sel := range result.Selections {
		out.Skills = append(out.Skills, proto.Selection{
			Name:    sel.Name,
			Score:   sel.Score,
			Pattern: sel.Pattern,
			Content: snap.Skills[sel.Name].Content,
		})
	}
	return out, nil
}
