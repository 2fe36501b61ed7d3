// services/classifier_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ClassifierClient calls the external spider classifier service
type ClassifierClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// Classification is the classifier's verdict on one photo
type Classification struct {
	Species        string   `json:"species"`
	Rarity         string   `json:"rarity"`
	HitPoints      int      `json:"hit_points"`
	Damage         int      `json:"damage"`
	Speed          int      `json:"speed"`
	Defense        int      `json:"defense"`
	Venom          int      `json:"venom"`
	Webcraft       int      `json:"webcraft"`
	SpecialAttacks []string `json:"special_attacks"`
	IsSpider       *bool    `json:"is_spider,omitempty"`
}

func NewClassifierClient(baseURL, token string) *ClassifierClient {
	return &ClassifierClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Classify posts an image URL to /classify
func (c *ClassifierClient) Classify(ctx context.Context, imageURL string) (*Classification, error) {
	url := fmt.Sprintf("%s/classify", c.BaseURL)

	reqBody := map[string]interface{}{
		"image_url": imageURL,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[CLASSIFIER] /classify returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("classification failed: %d", resp.StatusCode)
	}

	var out Classification
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	return &out, nil
}
