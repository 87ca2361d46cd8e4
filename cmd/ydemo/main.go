// This demo simulates several parallel editors in a single web page,
// forking their work into independent replicas. The state for the web
// page is kept on this server, where every mutation is applied through
// the crdt package's RunLocal scope.
//
// We assume there is no message loss or out-of-order network shenanigans
// for this demo. An actual multi-agent edit fest requires a more robust
// assumption, or a client-side CRDT for proper offline syncing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/brunokim/doccrdt/crdt"
	"github.com/google/uuid"
)

var (
	port          = flag.Int("port", 8009, "port to run server")
	debug         = flag.Bool("debug", false, "whether to dump debug information. Default debug file is log_{{datetime}}.jsonl")
	debugFilename = flag.String("debug_file", "", "file to dump debug information in JSONL format. Implies --debug")
)

type debugMsgType int

const (
	writeDebug debugMsgType = iota
	syncDebug
)

type debugMessage struct {
	msgType debugMsgType
	payload interface{}
}

// site is one frontend's replica: its own actor identity, document root
// and the text element the /edit endpoint mutates.
type site struct {
	actor uuid.UUID
	root  *crdt.Root
	text  *crdt.Text
}

func newSite() *site {
	actor := uuid.New()
	gen := crdt.NewTicketGenerator(actor)
	root := crdt.NewRoot(gen.Next())
	s := &site{actor: actor, root: root}
	root.RunLocal(actor, func(ctx *crdt.ChangeContext) error {
		s.text = crdt.NewText(ctx.NextTicket())
		root.Object().Set("content", s.text)
		ctx.RegisterElement(s.text, root.Object().CreatedAt(), "content")
		return nil
	})
	return s
}

// fork returns an independent replica starting from site's current
// content, with its own actor identity so its tickets never collide
// with the original's.
func (s *site) fork() *site {
	cp := &site{actor: uuid.New(), root: s.root.DeepCopy()}
	content, _ := cp.root.Object().Get("content")
	cp.text = content.(*crdt.Text)
	return cp
}

type state struct {
	sync.Mutex

	debugMsgs chan<- debugMessage

	sites           map[string]*site
	listFrontendIDs []string

	numEditRequests int
}

func newState(debugMsgs chan<- debugMessage) *state {
	return &state{
		debugMsgs: debugMsgs,
		sites:     make(map[string]*site),
	}
}

// -----

func main() {
	flag.Parse()

	debugMsgs := runDebug()
	s := newState(debugMsgs)

	http.Handle("/debug/", http.StripPrefix("/debug", http.FileServer(http.Dir("../debug"))))
	http.Handle("/edit", editHTTPHandler{s})
	http.Handle("/set", setHTTPHandler{s})
	http.Handle("/fork", forkHTTPHandler{s})
	http.HandleFunc("/", handleFile)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Serving in %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func handleFile(w http.ResponseWriter, req *http.Request) {
	path := "." + req.URL.Path
	if path == "./" {
		path = "./static/index.html"
	}
	http.ServeFile(w, req, path)
	log.Printf("%v", path)
}

// -----

type editRequest struct {
	ID  string          `json:"id"`
	Ops []editOperation `json:"ops"`
}

type editOperation struct {
	Op   string `json:"op"`
	Char string `json:"ch"`
	Dist int    `json:"dist"`
}

type editHTTPHandler struct {
	s *state
}

func (h editHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	parser := json.NewDecoder(req.Body)
	editReq := &editRequest{}
	if err := parser.Decode(editReq); err != nil {
		log.Printf("Error parsing body in /edit: %v", err)
		return
	}
	h.s.handleEdit(w, editReq)
}

func (s *state) handleEdit(w http.ResponseWriter, req *editRequest) {
	s.Lock()
	defer s.Unlock()
	s.writeDebug(req)

	id := req.ID
	if _, ok := s.sites[id]; !ok {
		s.sites[id] = newSite()
		s.listFrontendIDs = append(s.listFrontendIDs, id)
	}
	site := s.sites[id]

	_, err := site.root.RunLocal(site.actor, func(ctx *crdt.ChangeContext) error {
		i := 0
		for j, op := range req.Ops {
			ch, _ := utf8.DecodeRuneInString(op.Char)
			moved, err := applyCharOp(ctx, site, op.Op, ch, i)
			if err != nil {
				return err
			}
			i = moved
			if op.Op != "keep" && s.isDebug() {
				s.writeDebug(map[string]interface{}{
					"ReqIdx": s.numEditRequests,
					"OpIdx":  j,
					"Sites":  s.debugSnapshot(),
				})
			}
		}
		return nil
	})
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "edit failed: %v", err)
		return
	}

	content := site.text.String()
	log.Printf("%s: value     = %s", id, content)

	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, content)

	s.syncDebug()
	s.numEditRequests++
}

// applyCharOp performs one keep/insert/delete step of an index-addressed
// edit against site's text, and returns the caret index after the step.
func applyCharOp(ctx *crdt.ChangeContext, site *site, op string, ch rune, i int) (int, error) {
	switch op {
	case "keep":
		return i + 1, nil
	case "insert":
		from, err := site.text.IndexToPos(i)
		if err != nil {
			return i, err
		}
		_, gcPairs, _, err := site.text.Edit(from, from, ctx.NextTicket(), string(ch), nil, true, nil, nil)
		if err != nil {
			return i, err
		}
		ctx.RegisterGCPairs(gcPairs)
		log.Printf("operation = insertCharAt %c %d", ch, i)
		return i + 1, nil
	case "delete":
		from, err := site.text.IndexToPos(i)
		if err != nil {
			return i, err
		}
		to, err := site.text.IndexToPos(i + 1)
		if err != nil {
			return i, err
		}
		_, gcPairs, _, err := site.text.Edit(from, to, ctx.NextTicket(), "", nil, true, nil, nil)
		if err != nil {
			return i, err
		}
		ctx.RegisterGCPairs(gcPairs)
		log.Printf("operation = deleteCharAt %d", i)
		return i, nil
	}
	return i, nil
}

func (s *state) debugSnapshot() map[string]string {
	out := make(map[string]string, len(s.listFrontendIDs))
	for _, id := range s.listFrontendIDs {
		out[id] = s.sites[id].text.String()
	}
	return out
}

// -----

// charOp is one step of a charDiff result: kind is "keep", "insert" or
// "delete", matching editOperation.Op; ch is the rune involved (unused
// for "keep", since the caret only advances).
type charOp struct {
	kind string
	ch   rune
}

// charDiff finds a longest common subsequence of old and next by the
// textbook dynamic-programming table, filled back to front, then walks
// it front to back to emit keep/insert/delete steps left to right — the same op vocabulary
// editRequest.Ops carries, so /set can drive applyCharOp exactly like
// /edit does instead of requiring the caller to compute it.
func charDiff(old, next string) []charOp {
	a, b := []rune(old), []rune(next)
	n, m := len(a), len(b)

	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []charOp
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, charOp{kind: "keep"})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, charOp{kind: "delete"})
			i++
		default:
			ops = append(ops, charOp{kind: "insert", ch: b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, charOp{kind: "delete"})
	}
	for ; j < m; j++ {
		ops = append(ops, charOp{kind: "insert", ch: b[j]})
	}
	return ops
}

// setRequest carries a desired full text for a site; the server diffs it
// against the site's current content with charDiff and applies the
// resulting op sequence the same way /edit does, sparing callers from
// computing keep/insert/delete themselves.
type setRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type setHTTPHandler struct {
	s *state
}

func (h setHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	parser := json.NewDecoder(req.Body)
	setReq := &setRequest{}
	if err := parser.Decode(setReq); err != nil {
		log.Printf("Error parsing body in /set: %v", err)
		return
	}
	h.s.handleSet(w, setReq)
}

func (s *state) handleSet(w http.ResponseWriter, req *setRequest) {
	s.Lock()
	defer s.Unlock()
	s.writeDebug(req)

	id := req.ID
	if _, ok := s.sites[id]; !ok {
		s.sites[id] = newSite()
		s.listFrontendIDs = append(s.listFrontendIDs, id)
	}
	site := s.sites[id]

	ops := charDiff(site.text.String(), req.Text)

	_, err := site.root.RunLocal(site.actor, func(ctx *crdt.ChangeContext) error {
		i := 0
		for _, op := range ops {
			moved, err := applyCharOp(ctx, site, op.kind, op.ch, i)
			if err != nil {
				return err
			}
			i = moved
		}
		return nil
	})
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "set failed: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, site.text.String())

	s.syncDebug()
	s.numEditRequests++
}

// -----

type forkRequest struct {
	LocalID  string `json:"local"`
	RemoteID string `json:"remote"`
}

type forkHTTPHandler struct {
	s *state
}

func (h forkHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	parser := json.NewDecoder(req.Body)
	forkReq := &forkRequest{}
	if err := parser.Decode(forkReq); err != nil {
		log.Printf("Error parsing body in /fork: %v", err)
		return
	}
	h.s.handleFork(w, forkReq)
}

func (s *state) handleFork(w http.ResponseWriter, req *forkRequest) {
	s.Lock()
	defer s.Unlock()
	s.writeDebug(req)

	local, ok := s.sites[req.LocalID]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "unknown local frontend ID %q", req.LocalID)
		return
	}
	if _, ok := s.sites[req.RemoteID]; ok {
		w.WriteHeader(http.StatusPreconditionFailed)
		fmt.Fprintf(w, "new remote frontend ID already exists: %q", req.RemoteID)
		return
	}
	s.sites[req.RemoteID] = local.fork()
	s.listFrontendIDs = append(s.listFrontendIDs, req.RemoteID)
	log.Printf("%s: fork      = %s", req.LocalID, req.RemoteID)

	s.syncDebug()
}

// -----

func (s *state) isDebug() bool {
	return s.debugMsgs != nil
}

func (s *state) writeDebug(x interface{}) {
	if s.isDebug() {
		s.debugMsgs <- debugMessage{
			msgType: writeDebug,
			payload: x,
		}
	}
}

func (s *state) syncDebug() {
	if s.isDebug() {
		s.debugMsgs <- debugMessage{msgType: syncDebug}
	}
}

func runDebug() chan<- debugMessage {
	f := createDebug()
	if f == nil {
		return nil
	}
	ch := make(chan debugMessage, 10)
	go func() {
		for msg := range ch {
			if f == nil {
				continue
			}
			switch msg.msgType {
			case writeDebug:
				if bs, err := json.Marshal(msg.payload); err != nil {
					log.Printf("Error while writing to debug file: %v", err)
				} else {
					f.Write(bs)
					f.WriteString("\n")
				}
			case syncDebug:
				f.Sync()
			}
		}
		f.Close()
	}()
	return ch
}

func createDebug() *os.File {
	if !*debug && *debugFilename == "" {
		return nil
	}
	if *debugFilename == "" {
		datetime := time.Now().Format("2006-01-02T15:04:05")
		*debugFilename = fmt.Sprintf("log_%s.jsonl", datetime)
	}
	debugFile, err := os.Create(*debugFilename)
	if err != nil {
		log.Printf("Error opening debug file: %v", err)
		return nil
	}
	return debugFile
}
