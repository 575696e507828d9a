package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"proxykeeper/internal/shared/logger"
	"proxykeeper/proxypool/model"
)

const defaultRequestTimeout = 15 * time.Second

// FirebaseStore 实现 Store 接口，对接 Firebase Realtime Database 的 REST 端点。
// 每个集合是 <base>/<collection>.json 下的一个 key→record 映射；
// POST 创建记录并由服务端分配 key，PUT/DELETE 按 key 操作单条记录。
type FirebaseStore struct {
	baseURL string
	client  *http.Client
}

// NewFirebaseStore 创建一个指向 baseURL 的存储客户端。
func NewFirebaseStore(baseURL string) *FirebaseStore {
	return &FirebaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// postName is the body Firebase returns for a successful POST.
type postName struct {
	Name string `json:"name"`
}

func (s *FirebaseStore) ListProxies(ctx context.Context) (map[string]model.ProxyRecord, error) {
	out := make(map[string]model.ProxyRecord)
	if err := s.getJSON(ctx, s.collectionURL(CollectionProxies), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FirebaseStore) ListStable(ctx context.Context) (map[string]model.StableRecord, error) {
	out := make(map[string]model.StableRecord)
	if err := s.getJSON(ctx, s.collectionURL(CollectionStable), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FirebaseStore) PutProxy(ctx context.Context, key string, rec model.ProxyRecord) (string, error) {
	return s.put(ctx, CollectionProxies, key, rec)
}

func (s *FirebaseStore) PutStable(ctx context.Context, key string, rec model.StableRecord) (string, error) {
	return s.put(ctx, CollectionStable, key, rec)
}

func (s *FirebaseStore) DeleteProxy(ctx context.Context, key string) error {
	return s.delete(ctx, CollectionProxies, key)
}

func (s *FirebaseStore) DeleteStable(ctx context.Context, key string) error {
	return s.delete(ctx, CollectionStable, key)
}

// getJSON 读取一个集合的全量快照。Firebase 对空集合返回 JSON null，
// 此时保留 out 的零值空 map。
func (s *FirebaseStore) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("store read failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store read returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("store read failed: %w", err)
	}
	if string(bytes.TrimSpace(body)) == "null" {
		return nil
	}
	return json.Unmarshal(body, out)
}

// put 写入一条记录。key 为空时 POST（服务端分配 key），否则 PUT 覆盖。
func (s *FirebaseStore) put(ctx context.Context, collection, key string, rec interface{}) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	method := http.MethodPut
	url := s.recordURL(collection, key)
	if key == "" {
		method = http.MethodPost
		url = s.collectionURL(collection)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("store write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("store write returned status %d", resp.StatusCode)
	}

	if key != "" {
		return key, nil
	}
	var created postName
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode created key: %w", err)
	}
	return created.Name, nil
}

// delete 删除一条记录。Firebase 对不存在的 key 同样返回 200，天然幂等。
func (s *FirebaseStore) delete(ctx context.Context, collection, key string) error {
	if key == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.recordURL(collection, key), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("store delete failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store delete returned status %d", resp.StatusCode)
	}
	l := logger.WithComponent("ProxyPool/Storage")
	l.Debug().
		Str("collection", collection).Str("key", key).Msg("Record deleted.")
	return nil
}

func (s *FirebaseStore) collectionURL(collection string) string {
	return fmt.Sprintf("%s/%s.json", s.baseURL, collection)
}

func (s *FirebaseStore) recordURL(collection, key string) string {
	return fmt.Sprintf("%s/%s/%s.json", s.baseURL, collection, key)
}
