// Package qdrant implements the vector.VectorStore interface against a
// Qdrant instance over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/jllopis/praxis/pkg/vector"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Store struct {
	client      pb.PointsClient
	collections pb.CollectionsClient
}

func New(addr string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("did not connect: %v", err)
	}

	return &Store{
		client:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	qPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		qPoints[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: encodePayload(p.Payload),
		}
	}

	_, err := s.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         qPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

func (s *Store) Scroll(ctx context.Context, collection string, limit int) ([]vector.Point, error) {
	var points []vector.Point
	var offset *pb.PointId

	for {
		req := &pb.ScrollPoints{
			CollectionName: collection,
			Limit:          scrollLimit(limit),
			Offset:         offset,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
			WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
		}
		resp, err := s.client.Scroll(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}
		for _, r := range resp.Result {
			point := vector.Point{
				ID:      pointID(r.Id),
				Payload: decodePayload(r.Payload),
			}
			if vecs := r.GetVectors(); vecs != nil {
				if v := vecs.GetVector(); v != nil {
					point.Vector = v.Data
				}
			}
			points = append(points, point)
		}
		if resp.NextPageOffset == nil {
			break
		}
		offset = resp.NextPageOffset
	}

	return points, nil
}

func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
	}
	_, err := s.client.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func scrollLimit(limit int) *uint32 {
	if limit <= 0 {
		limit = 256
	}
	v := uint32(limit)
	return &v
}

func pointID(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if id.GetUuid() != "" {
		return id.GetUuid()
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func encodePayload(payload map[string]interface{}) map[string]*pb.Value {
	out := make(map[string]*pb.Value)
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
		case bool:
			out[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: val}}
		case int:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(val)}}
		case int64:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: val}}
		case float64:
			out[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: val}}
		}
	}
	return out
}

func decodePayload(payload map[string]*pb.Value) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range payload {
		switch knd := v.GetKind().(type) {
		case *pb.Value_StringValue:
			out[k] = knd.StringValue
		case *pb.Value_BoolValue:
			out[k] = knd.BoolValue
		case *pb.Value_IntegerValue:
			out[k] = knd.IntegerValue
		case *pb.Value_DoubleValue:
			out[k] = knd.DoubleValue
		}
	}
	return out
}
