package passphrase

import "sync"

// Window es la ventana de registro por passphrase. Vive en memoria: un reinicio
// la cierra. Cada operación toma el lock una sola vez y nunca lo retiene
// durante I/O.
type Window struct {
	mu     sync.Mutex
	phrase string
	open   bool
}

// NewWindow crea una ventana cerrada.
func NewWindow() *Window { return &Window{} }

// Open abre la ventana con phrase. Si ya estaba abierta no la pisa: retorna la
// frase vigente y ErrAlreadyOpen.
func (w *Window) Open(phrase string) (existing string, err error) {
	if phrase == "" {
		return "", ErrEmptyPhrase
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open {
		return w.phrase, ErrAlreadyOpen
	}
	w.phrase, w.open = phrase, true
	return "", nil
}

// Close cierra la ventana y retorna la frase que estaba abierta.
func (w *Window) Close() (previous string, wasOpen bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	previous, wasOpen = w.phrase, w.open
	w.phrase, w.open = "", false
	return previous, wasOpen
}

// Status retorna una copia del estado actual.
func (w *Window) Status() (phrase string, open bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phrase, w.open
}
