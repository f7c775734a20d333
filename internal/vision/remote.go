package vision

import (
	"bytes"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// RemoteClient talks to the external face recognition service over HTTP.
// It implements both Detector and Encoder: POST /detect returns bounding
// boxes for a JPEG frame, POST /encode returns one feature vector per box.
type RemoteClient struct {
	baseURL string
	client  *http.Client
	encode  func(img *image.RGBA) ([]byte, error)
}

// remoteBox mirrors the service's (top, right, bottom, left) box layout.
type remoteBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

type detectResponse struct {
	Boxes []remoteBox `json:"boxes"`
}

type encodeResponse struct {
	Vectors []FeatureVector `json:"vectors"`
}

// NewRemoteClient creates a client for the recognition service at baseURL.
func NewRemoteClient(baseURL string, timeout time.Duration, jpegEncode func(img *image.RGBA) ([]byte, error)) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		encode:  jpegEncode,
	}
}

// Detect posts the frame and returns detected face boxes in frame coordinates.
func (c *RemoteClient) Detect(img *image.RGBA) ([]Box, error) {
	var resp detectResponse
	if err := c.post("/detect", img, nil, &resp); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	boxes := make([]Box, 0, len(resp.Boxes))
	for _, b := range resp.Boxes {
		boxes = append(boxes, image.Rect(b.Left, b.Top, b.Right, b.Bottom))
	}
	return boxes, nil
}

// Encode posts the frame plus boxes and returns one vector per box.
func (c *RemoteClient) Encode(img *image.RGBA, boxes []Box) ([]FeatureVector, error) {
	wire := make([]remoteBox, 0, len(boxes))
	for _, b := range boxes {
		wire = append(wire, remoteBox{Top: b.Min.Y, Right: b.Max.X, Bottom: b.Max.Y, Left: b.Min.X})
	}

	var resp encodeResponse
	if err := c.post("/encode", img, wire, &resp); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	if len(resp.Vectors) != len(boxes) {
		return nil, fmt.Errorf("encode: got %d vectors for %d boxes", len(resp.Vectors), len(boxes))
	}
	return resp.Vectors, nil
}

// post sends the frame (and optional boxes) as a multipart form and decodes
// the JSON response into out.
func (c *RemoteClient) post(path string, img *image.RGBA, boxes []remoteBox, out any) error {
	jpegData, err := c.encode(img)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(jpegData); err != nil {
		return err
	}

	if boxes != nil {
		boxJSON, err := json.Marshal(boxes)
		if err != nil {
			return err
		}
		if err := mw.WriteField("boxes", string(boxJSON)); err != nil {
			return err
		}
	}

	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
