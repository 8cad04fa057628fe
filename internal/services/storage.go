package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoredFile is an audio file staged for one batch.
type StoredFile struct {
	Path     string `json:"-"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

type FileMeta struct {
	Name string
	Size int64
}

type StorageOptions struct {
	UploadPath         string
	MaxFileSize        int64
	AllowedFormats     []string
	MaxFilesPerRequest int
}

type StorageService interface {
	EnsureUploadDir() error
	SaveAudioFiles(files []*multipart.FileHeader) ([]StoredFile, error)
	InspectLocalFile(path string) (StoredFile, error)
	ReadAudio(file StoredFile) (Audio, error)
	ReadMeta(path string) (FileMeta, error)
	Discard(files []StoredFile)
}

type storageService struct {
	opts   StorageOptions
	logger *zap.Logger
}

func NewStorageService(opts StorageOptions, logger *zap.Logger) StorageService {
	return &storageService{
		opts:   opts,
		logger: logger,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.opts.UploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveAudioFiles validates and stages every file. Any invalid file rejects
// the whole batch; files staged before the failure are removed.
func (s *storageService) SaveAudioFiles(files []*multipart.FileHeader) ([]StoredFile, error) {
	if len(files) == 0 {
		return nil, validationErrorf("no files uploaded")
	}
	if s.opts.MaxFilesPerRequest > 0 && len(files) > s.opts.MaxFilesPerRequest {
		return nil, validationErrorf("maximum %d files allowed per request", s.opts.MaxFilesPerRequest)
	}

	saved := make([]StoredFile, 0, len(files))
	for _, fh := range files {
		stored, err := s.saveFile(fh)
		if err != nil {
			s.Discard(saved)
			return nil, err
		}
		saved = append(saved, stored)
	}

	return saved, nil
}

func (s *storageService) saveFile(fh *multipart.FileHeader) (StoredFile, error) {
	if fh.Filename == "" {
		return StoredFile{}, validationErrorf("file must have a filename")
	}
	if err := s.checkSize(fh.Filename, fh.Size); err != nil {
		return StoredFile{}, err
	}
	ext, err := s.checkExtension(fh.Filename)
	if err != nil {
		return StoredFile{}, err
	}

	src, err := fh.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	mimeType, err := s.detectAudio(fh.Filename, src, fh.Size)
	if err != nil {
		return StoredFile{}, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return StoredFile{}, fmt.Errorf("failed to rewind uploaded file: %w", err)
	}

	filePath := filepath.Join(s.opts.UploadPath, uuid.New().String()+ext)

	dst, err := os.Create(filePath)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(filePath)
		return StoredFile{}, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("saved audio file",
		zap.String("filename", fh.Filename),
		zap.String("path", filePath),
		zap.Int64("size", written))

	return StoredFile{
		Path:     filePath,
		Name:     fh.Filename,
		Size:     written,
		MIMEType: mimeType,
	}, nil
}

// InspectLocalFile applies the upload checks to a file already on disk.
func (s *storageService) InspectLocalFile(path string) (StoredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return StoredFile{}, validationErrorf("file %s not found", path)
	}
	if info.IsDir() {
		return StoredFile{}, validationErrorf("%s is a directory", path)
	}

	name := filepath.Base(path)
	if err := s.checkSize(name, info.Size()); err != nil {
		return StoredFile{}, err
	}
	if _, err := s.checkExtension(name); err != nil {
		return StoredFile{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	mimeType, err := s.detectAudio(name, f, info.Size())
	if err != nil {
		return StoredFile{}, err
	}

	return StoredFile{Path: path, Name: name, Size: info.Size(), MIMEType: mimeType}, nil
}

func (s *storageService) checkSize(name string, size int64) error {
	if s.opts.MaxFileSize > 0 && size > s.opts.MaxFileSize {
		return validationErrorf("file %s is too large. Maximum size is %dMB", name, s.opts.MaxFileSize/(1024*1024))
	}
	return nil
}

func (s *storageService) checkExtension(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(s.opts.AllowedFormats, ext) {
		return "", validationErrorf("file format %s not allowed. Allowed formats: %s", ext, strings.Join(s.opts.AllowedFormats, ", "))
	}
	return ext, nil
}

// detectAudio sniffs the content type. Empty files skip the check.
func (s *storageService) detectAudio(name string, r io.Reader, size int64) (string, error) {
	if size == 0 {
		return "application/octet-stream", nil
	}

	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	detected := mtype.String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	if !strings.HasPrefix(detected, "audio/") {
		return "", validationErrorf("file %s is not an audio file. Detected MIME type: %s", name, detected)
	}
	return detected, nil
}

func (s *storageService) ReadAudio(file StoredFile) (Audio, error) {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return Audio{}, fmt.Errorf("failed to read audio file: %w", err)
	}

	mimeType := file.MIMEType
	if !strings.HasPrefix(mimeType, "audio/") {
		mimeType = "audio/wav"
	}

	return Audio{Name: file.Name, MIMEType: mimeType, Data: data}, nil
}

func (s *storageService) ReadMeta(path string) (FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMeta{}, fmt.Errorf("file not found: %w", err)
	}
	return FileMeta{Name: filepath.Base(path), Size: info.Size()}, nil
}

// Discard removes staged files. Failures are logged, not returned.
func (s *storageService) Discard(files []StoredFile) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Error("failed to clean up file", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		s.logger.Debug("cleaned up file", zap.String("path", f.Path))
	}
}
