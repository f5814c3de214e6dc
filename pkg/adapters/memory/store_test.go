package memory_test

import (
	"testing"

	"github.com/aretw0/ussdgw/pkg/adapters/memory"
	"github.com/aretw0/ussdgw/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryRepository_Contract(t *testing.T) {
	repo := memory.NewRepository()
	ports.RunUserRepositoryContract(t, repo)
	ports.RunShipmentRepositoryContract(t, repo)
}
