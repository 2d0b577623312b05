package satduang_test

import (
	"os"
	"strings"
	"testing"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("%s should exist: %v", name, err)
	}
	return string(data)
}

// composeService は docker-compose.yml から指定サービスのブロックを切り出す。
func composeService(t *testing.T, content, name string) string {
	t.Helper()
	start := strings.Index(content, "\n  "+name+":\n")
	if start < 0 {
		t.Fatalf("docker-compose.yml should contain service %q", name)
	}
	block := content[start+1:]
	lines := strings.Split(block, "\n")
	var b strings.Builder
	for i, line := range lines {
		// 次のサービスまたはトップレベルキーで終了
		if i > 0 && line != "" && !strings.HasPrefix(line, "    ") {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBinary(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "./cmd/satduang") {
		t.Error("Dockerfile should build ./cmd/satduang")
	}
	if !strings.Contains(content, "ENTRYPOINT") {
		t.Error("Dockerfile should contain ENTRYPOINT")
	}
	// distrolessにはシェルが無いため、healthcheckサブコマンドを使う
	if !strings.Contains(content, `"healthcheck"`) {
		t.Error("Dockerfile HEALTHCHECK should use the healthcheck subcommand")
	}
}

func TestDockerComposeServices(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	if !strings.Contains(composeService(t, content, "db"), "image: postgres:") {
		t.Error("db service should use a PostgreSQL image")
	}

	commands := map[string]string{
		"api":     `command: ["serve"]`,
		"worker":  `command: ["worker"]`,
		"migrate": `command: ["migrate"]`,
	}
	for svc, want := range commands {
		if !strings.Contains(composeService(t, content, svc), want) {
			t.Errorf("%s service should run %s", svc, want)
		}
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// DBとワーカーは外部に出られない内部ネットワークのみに接続する
	if !strings.Contains(content, "internal: true") {
		t.Error("docker-compose.yml should define an internal network (internal: true) for egress restriction")
	}
	for _, svc := range []string{"db", "worker"} {
		if strings.Contains(composeService(t, content, svc), "- external") {
			t.Errorf("%s service should not join the external network", svc)
		}
	}

	// LINE・Stripeを呼び出すAPIのみ外部通信を許可する
	if !strings.Contains(composeService(t, content, "api"), "- external") {
		t.Error("api service should join the external network for LINE and Stripe egress")
	}
}
