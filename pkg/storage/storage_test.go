package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// 创建测试文件辅助函数
func createTestFile(content string) (io.Reader, string) {
	return bytes.NewBufferString(content), fmt.Sprintf("test-%d.txt", os.Getpid())
}

// 读取文件内容辅助函数
func readAll(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	tempDir := t.TempDir()

	localStorage, err := NewLocalStorage(LocalConfig{
		Path: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to create local storage instance: %v", err)
	}

	// 测试 Save 功能
	t.Run("Save", func(t *testing.T) {
		content := "这是测试文件内容"
		fileReader, fileName := createTestFile(content)

		info, err := localStorage.Save(fileReader, fileName)
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if info.ID == "" {
			t.Error("Returned artifact ID should not be empty")
		}

		if info.Name != fileName {
			t.Errorf("File name should be %s, got %s", fileName, info.Name)
		}

		// 检查文件是否确实被保存
		filePath := filepath.Join(tempDir, info.Path)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			t.Errorf("File was not saved to disk: %s", filePath)
		}
	})

	// 保存一个文件用于后续测试
	content := "这是一个用于测试的样本文件"
	reader, fileName := createTestFile(content)
	fileInfo, err := localStorage.Save(reader, fileName)
	if err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}

	// 测试 SaveText 功能
	t.Run("SaveText", func(t *testing.T) {
		info, err := localStorage.SaveText("extracted text\n", "output.txt")
		if err != nil {
			t.Fatalf("Failed to save text artifact: %v", err)
		}

		r, err := localStorage.Get(info.ID)
		if err != nil {
			t.Fatalf("Failed to get text artifact: %v", err)
		}
		defer r.Close()

		if got := readAll(r); got != "extracted text\n" {
			t.Errorf("Text artifact content mismatch, got: %q", got)
		}
	})

	// 测试 Get 功能
	t.Run("Get", func(t *testing.T) {
		reader, err := localStorage.Get(fileInfo.ID)
		if err != nil {
			t.Fatalf("Failed to get file: %v", err)
		}
		defer reader.Close()

		retrievedContent := readAll(reader)
		if retrievedContent != content {
			t.Errorf("File content mismatch, expected: %s, got: %s", content, retrievedContent)
		}
	})

	// 测试 List 功能
	t.Run("List", func(t *testing.T) {
		files, err := localStorage.List()
		if err != nil {
			t.Fatalf("Failed to list files: %v", err)
		}

		if len(files) < 1 {
			t.Error("There should be at least one file, but the list is empty")
		}

		found := false
		for _, file := range files {
			if file.ID == fileInfo.ID {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("Saved artifact ID not found: %s", fileInfo.ID)
		}
	})

	// 测试 Exists 功能
	t.Run("Exists", func(t *testing.T) {
		exists, err := localStorage.Exists(fileInfo.ID)
		if err != nil {
			t.Fatalf("Failed to check file existence: %v", err)
		}

		if !exists {
			t.Error("File should exist, but does not")
		}

		exists, err = localStorage.Exists("non-existent-id")
		if err != nil {
			t.Fatalf("Failed to check non-existent file: %v", err)
		}

		if exists {
			t.Error("Non-existent file should return false, but got true")
		}
	})

	// 测试 Delete 功能
	t.Run("Delete", func(t *testing.T) {
		err := localStorage.Delete(fileInfo.ID)
		if err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}

		// 确认文件已被删除
		exists, _ := localStorage.Exists(fileInfo.ID)
		if exists {
			t.Error("File should have been deleted, but still exists")
		}
	})
}

// TestMimeTypes 测试MIME类型判断
func TestMimeTypes(t *testing.T) {
	cases := map[string]string{
		"doc.docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"out.txt":   "text/plain",
		"readme.md": "text/markdown",
		"file.pdf":  "application/pdf",
		"merged.gz": "application/gzip",
		"data.bin":  "application/octet-stream",
	}

	for name, want := range cases {
		if got := getMimeType(name); got != want {
			t.Errorf("getMimeType(%s) = %s, want %s", name, got, want)
		}
	}
}

// TestStorageFactory 测试存储工厂函数
func TestStorageFactory(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		st, err := New(Config{
			Type:  "local",
			Local: LocalConfig{Path: t.TempDir()},
		})
		if err != nil {
			t.Fatalf("Failed to create local storage: %v", err)
		}
		if st == nil {
			t.Fatal("Created storage instance should not be nil")
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := New(Config{Type: "nfs"})
		if err == nil {
			t.Fatal("Expected error for unknown storage type")
		}
	})
}

// TestMinioStorage 测试MinIO存储实现
// 需要先启动MinIO服务，默认跳过
func TestMinioStorage(t *testing.T) {
	if os.Getenv("RUN_MINIO_TEST") != "true" {
		t.Skip("RUN_MINIO_TEST not set, skipping MinIO tests")
	}

	cfg := MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    false,
		Bucket:    "doc-convert-test",
	}

	minioStorage, err := NewMinioStorage(cfg)
	if err != nil {
		t.Fatalf("Failed to create MinIO storage: %v", err)
	}

	content := "这是一个用于MinIO测试的样本文件"
	reader, fileName := createTestFile(content)
	fileInfo, err := minioStorage.Save(reader, fileName)
	if err != nil {
		t.Fatalf("Failed to save test file to MinIO: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		reader, err := minioStorage.Get(fileInfo.ID)
		if err != nil {
			t.Fatalf("Failed to get file from MinIO: %v", err)
		}
		defer reader.Close()

		if got := readAll(reader); got != content {
			t.Errorf("File content mismatch, expected: %s, got: %s", content, got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := minioStorage.Delete(fileInfo.ID); err != nil {
			t.Fatalf("Failed to delete MinIO file: %v", err)
		}

		exists, _ := minioStorage.Exists(fileInfo.ID)
		if exists {
			t.Error("File should have been deleted, but still exists")
		}
	})
}
