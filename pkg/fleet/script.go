package fleet

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Placeholders substituted into the provisioning script
const (
	placeholderManagerAddr = "{{MANAGER_ADDR}}"
	placeholderWorkerToken = "{{WORKER_TOKEN}}"
)

// scriptSource loads the worker setup script once and renders it into
// a command chain per provisioning call. A missing or empty script is
// a fatal configuration error surfaced at first use.
type scriptSource struct {
	path string

	once     sync.Once
	commands []string
	loadErr  error
}

func newScriptSource(path string) *scriptSource {
	return &scriptSource{path: path}
}

// render returns the command chain with bootstrap values substituted.
// When the script carries no join step of its own, a generated swarm
// join command is appended.
func (s *scriptSource) render(managerAddr, workerToken string) ([]string, error) {
	s.once.Do(s.load)
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	commands := make([]string, 0, len(s.commands)+1)
	hasJoin := false
	for _, raw := range s.commands {
		if strings.Contains(raw, placeholderWorkerToken) {
			hasJoin = true
		}
		cmd := strings.ReplaceAll(raw, placeholderManagerAddr, managerAddr)
		cmd = strings.ReplaceAll(cmd, placeholderWorkerToken, workerToken)
		commands = append(commands, cmd)
	}

	if !hasJoin {
		commands = append(commands, fmt.Sprintf("docker swarm join --token %s %s", workerToken, managerAddr))
	}

	return commands, nil
}

func (s *scriptSource) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.loadErr = fmt.Errorf("worker setup script %s unavailable: %w", s.path, err)
		return
	}

	var commands []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}

	if len(commands) == 0 {
		s.loadErr = fmt.Errorf("worker setup script %s contains no commands", s.path)
		return
	}
	s.commands = commands
}
