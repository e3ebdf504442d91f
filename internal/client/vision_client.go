package client

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/stemsi/exstem-interview/internal/proctor"
)

const maxFaces = 10

// VisionClient detects faces with Google Cloud Vision.
type VisionClient struct {
	client *vision.ImageAnnotatorClient
}

// CredentialOptions turns an inline JSON key or a key file path into client options.
// Empty credentials fall back to application default credentials.
func CredentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func NewVisionClient(ctx context.Context, opts ...option.ClientOption) (*VisionClient, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionClient{client: c}, nil
}

// DetectFaces implements proctor.FaceDetector.
func (c *VisionClient) DetectFaces(ctx context.Context, image []byte) ([]proctor.Face, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_FACE_DETECTION, MaxResults: maxFaces},
			},
		}},
	}

	resp, err := c.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	return facesFromResponse(resp)
}

func facesFromResponse(resp *visionpb.BatchAnnotateImagesResponse) ([]proctor.Face, error) {
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	faces := make([]proctor.Face, 0, len(r0.FaceAnnotations))
	for _, fa := range r0.FaceAnnotations {
		if fa == nil {
			continue
		}
		faces = append(faces, proctor.Face{
			Confidence: float64(fa.DetectionConfidence),
			Pan:        float64(fa.PanAngle),
			Tilt:       float64(fa.TiltAngle),
		})
	}
	return faces, nil
}

func (c *VisionClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
