package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"

	"proxykeeper/internal/shared/logger"
	"proxykeeper/proxypool/model"
)

// fileDocument 是文件后端的磁盘布局：一个 JSON 文档装下两个集合。
type fileDocument struct {
	Proxies map[string]model.ProxyRecord  `json:"proxies"`
	Stable  map[string]model.StableRecord `json:"stable_proxies"`
}

// FileStore 实现 Store 接口，使用单个 JSON 文件持久化。
// 用于本地运行和测试；key 由客户端生成（uuid）。
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStore 创建一个新的 FileStore 实例。
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

func (fs *FileStore) ListProxies(ctx context.Context) (map[string]model.ProxyRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	return doc.Proxies, nil
}

func (fs *FileStore) ListStable(ctx context.Context) (map[string]model.StableRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	return doc.Stable, nil
}

func (fs *FileStore) PutProxy(ctx context.Context, key string, rec model.ProxyRecord) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return "", err
	}
	if key == "" {
		key = uuid.NewString()
	}
	doc.Proxies[key] = rec
	return key, fs.save(doc)
}

func (fs *FileStore) PutStable(ctx context.Context, key string, rec model.StableRecord) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return "", err
	}
	if key == "" {
		key = uuid.NewString()
	}
	doc.Stable[key] = rec
	return key, fs.save(doc)
}

func (fs *FileStore) DeleteProxy(ctx context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return err
	}
	delete(doc.Proxies, key)
	return fs.save(doc)
}

func (fs *FileStore) DeleteStable(ctx context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.load()
	if err != nil {
		return err
	}
	delete(doc.Stable, key)
	return fs.save(doc)
}

// load 读取整个文档。文件不存在时返回空文档而不是错误。
func (fs *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{
		Proxies: make(map[string]model.ProxyRecord),
		Stable:  make(map[string]model.StableRecord),
	}

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			l := logger.WithComponent("ProxyPool/Storage")
			l.Debug().
				Str("path", fs.filePath).Msg("Data file not found, starting with empty pools.")
			return doc, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Proxies == nil {
		doc.Proxies = make(map[string]model.ProxyRecord)
	}
	if doc.Stable == nil {
		doc.Stable = make(map[string]model.StableRecord)
	}
	return doc, nil
}

func (fs *FileStore) save(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.filePath, data, 0644)
}
