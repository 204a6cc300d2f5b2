// Package repository define los contratos del Persistent Store.
//
// Las interfaces son independientes del almacenamiento; las implementaciones
// viven en internal/store/pg (PostgreSQL, producción) e internal/store/memory
// (desarrollo y tests).
//
//	┌──────────────────────────────────────────────┐
//	│   verification.Service / passphrase.Registrar │
//	└──────────────────────────────────────────────┘
//	                     │
//	                     ▼
//	┌──────────────────────────────────────────────┐
//	│      domain/repository (interfaces)           │
//	│  Verifications, Links, Grants, InTx           │
//	└──────────────────────────────────────────────┘
//	             │                    │
//	             ▼                    ▼
//	     ┌─────────────┐      ┌─────────────┐
//	     │  store/pg   │      │ store/memory│
//	     └─────────────┘      └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Errores de dominio en errors.go; los adapters traducen sus errores nativos
//     (pgx.ErrNoRows, 23505) a ErrNotFound / ErrConflict.
package repository
