// Secret Santa draw
//
// One device (the organizer's) builds the roster, runs the draw and is then
// passed around so each giver can privately see who they drew.
//
// Features:
// - WebSockets per draw ID: /path/:drawid and /path/:drawid/ws
// - First connection to a draw becomes the organizer; only it may change state
// - Later connections are spectators: they see names and reveal progress, never a receiver
// - Roster editing (add, rename, remove) with validation before every draw
// - Pass-the-device reveal: open a card, confirm, reveal, close; closed cards lock
// - WhatsApp and SMS share links for the revealed pair
// - Draws auto-reaped after configurable idle timeout
// - Random 8-char draw IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current draw, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/amasilva36/secret-santa/santa"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	stageInput  = "input"
	stageReveal = "reveal"

	maxParticipants = 100
	maxNameLength   = 64
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`           // "add", "rename", "remove", "generate", "open_card", "reveal", "close_card", "reset"
	ID   string `json:"id,omitempty"`   // rename / remove / open_card
	Name string `json:"name,omitempty"` // add / rename
}

// SessionInfoMessage is sent immediately on connect so the client knows
// which role this cookie has.
type SessionInfoMessage struct {
	Type            string `json:"type"` // "session_info"
	DrawID          string `json:"draw_id"`
	IsOrganizer     bool   `json:"is_organizer"`
	Stage           string `json:"stage"`
	MinParticipants int    `json:"min_participants"`
}

// RosterMessage carries the participant list as currently edited.
type RosterMessage struct {
	Type         string              `json:"type"` // "roster"
	Stage        string              `json:"stage"`
	Participants []santa.Participant `json:"participants"`
}

// CardState is one giver's card on the reveal board. It never says who they drew.
type CardState struct {
	GiverID   string `json:"giver_id"`
	GiverName string `json:"giver_name"`
	Completed bool   `json:"completed"`
	Open      bool   `json:"open"`
}

// ProgressMessage is broadcast whenever the reveal board changes.
type ProgressMessage struct {
	Type         string      `json:"type"` // "progress"
	Stage        string      `json:"stage"`
	Cards        []CardState `json:"cards"`
	Completed    int         `json:"completed"`
	Total        int         `json:"total"`
	AllCompleted bool        `json:"all_completed"`
}

// CardMessage asks the holder of the device to confirm they are the giver.
type CardMessage struct {
	Type      string `json:"type"` // "card"
	GiverID   string `json:"giver_id"`
	GiverName string `json:"giver_name"`
}

// RevealedMessage is only ever sent to the organizer's own connection.
type RevealedMessage struct {
	Type         string `json:"type"` // "revealed"
	GiverName    string `json:"giver_name"`
	ReceiverName string `json:"receiver_name"`
	Message      string `json:"message"`
	WhatsApp     string `json:"whatsapp"`
	SMS          string `json:"sms"`
}

type ErrorMessage struct {
	Type     string   `json:"type"` // "error"
	Messages []string `json:"messages"`
}

var (
	errNotOrganizer = errors.New("not the organizer")
	errWrongStage   = errors.New("wrong stage")
	errRosterFull   = errors.New("roster full")
	errNameTooLong  = errors.New("name too long")
	errNoSuchPerson = errors.New("no such participant")
	errOrganizerRow = errors.New("organizer row cannot be removed")
	errCardLocked   = errors.New("card already completed")
	errNoOpenCard   = errors.New("no open card")
	errDrawFailed   = errors.New("draw failed")

	errDrawUnfinished = errors.New("draw not finished")
)

// userText is what the browser shows for each hub error.
var userText = map[error]string{
	errNotOrganizer:   "Only the organizer can change this draw.",
	errWrongStage:     "That is not possible right now.",
	errRosterFull:     "The roster is full.",
	errNameTooLong:    "That name is too long.",
	errNoSuchPerson:   "That participant no longer exists.",
	errOrganizerRow:   "The organizer cannot be removed.",
	errCardLocked:     "That card has already been revealed.",
	errNoOpenCard:     "No card is open.",
	errDrawFailed:     "Could not generate valid pairs. Please try again.",
	errDrawUnfinished: "Reveal every card before starting a new draw.",
}

// newErrorMessage renders err for the browser. Roster validation errors are
// joined, so each line becomes its own entry.
func newErrorMessage(err error) ErrorMessage {
	if text, ok := userText[err]; ok {
		return ErrorMessage{Type: "error", Messages: []string{text}}
	}

	return ErrorMessage{
		Type:     "error",
		Messages: strings.Split(err.Error(), "\n"),
	}
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	ios      bool
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id        string
	generator *santa.Generator
	minimum   int

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan command
	quit     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	createdAt   time.Time
	lastActive  time.Time
	organizerID string // cookie/playerID of the organizer

	stage        string
	participants []santa.Participant
	assignments  []santa.Assignment
	completed    map[string]bool // giver ID -> card closed
	openGiver    string
}

func newHub(drawID string, generator *santa.Generator, minimum int) *Hub {
	now := time.Now()
	return &Hub{
		id:           drawID,
		generator:    generator,
		minimum:      minimum,
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unreg:        make(chan *Client),
		commands:     make(chan command),
		quit:         make(chan struct{}),
		createdAt:    now,
		lastActive:   now,
		stage:        stageInput,
		participants: []santa.Participant{santa.NewParticipant("")},
		completed:    make(map[string]bool),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unreg:
			h.removeClient(c)

		case cmd := <-h.commands:
			h.handleCommand(cmd)

		case <-h.quit:
			return
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	// First connection becomes organizer
	if h.organizerID == "" {
		h.organizerID = c.playerID
	}

	h.clients[c] = true

	h.sendLocked(c, SessionInfoMessage{
		Type:            "session_info",
		DrawID:          h.id,
		IsOrganizer:     c.playerID == h.organizerID,
		Stage:           h.stage,
		MinParticipants: h.minimum,
	})
	h.sendLocked(c, h.rosterLocked())
	h.sendLocked(c, h.progressLocked())
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// sendLocked queues msg for c, dropping the client if its buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	h.broadcastExceptLocked(nil, msg)
}

func (h *Hub) broadcastExceptLocked(skip *Client, msg any) {
	for client := range h.clients {
		if client != skip {
			h.sendLocked(client, msg)
		}
	}
}

func (h *Hub) rosterLocked() RosterMessage {
	participants := make([]santa.Participant, len(h.participants))
	copy(participants, h.participants)

	return RosterMessage{
		Type:         "roster",
		Stage:        h.stage,
		Participants: participants,
	}
}

func (h *Hub) progressLocked() ProgressMessage {
	cards := make([]CardState, 0, len(h.assignments))
	for _, a := range h.assignments {
		cards = append(cards, CardState{
			GiverID:   a.Giver.ID,
			GiverName: a.Giver.Name,
			Completed: h.completed[a.Giver.ID],
			Open:      a.Giver.ID == h.openGiver,
		})
	}

	return ProgressMessage{
		Type:         "progress",
		Stage:        h.stage,
		Cards:        cards,
		Completed:    len(h.completed),
		Total:        len(h.assignments),
		AllCompleted: len(h.assignments) > 0 && len(h.completed) == len(h.assignments),
	}
}

func (h *Hub) participantIndexLocked(id string) int {
	for i, p := range h.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (h *Hub) assignmentIndexLocked(giverID string) int {
	for i, a := range h.assignments {
		if a.Giver.ID == giverID {
			return i
		}
	}
	return -1
}

// handleCommand applies one organizer command. Failures are reported only to
// the client that sent the command.
func (h *Hub) handleCommand(cmd command) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if c.playerID == "" || c.playerID != h.organizerID {
		h.sendLocked(c, newErrorMessage(errNotOrganizer))
		return
	}

	var err error
	switch msg.Type {
	case "add":
		err = h.addParticipantLocked(msg.Name)
	case "rename":
		err = h.renameParticipantLocked(c, msg.ID, msg.Name)
	case "remove":
		err = h.removeParticipantLocked(msg.ID)
	case "generate":
		err = h.generateLocked()
	case "open_card":
		err = h.openCardLocked(c, msg.ID)
	case "reveal":
		err = h.revealLocked(c)
	case "close_card":
		err = h.closeCardLocked()
	case "reset":
		err = h.resetLocked()
	default:
		return
	}

	if err != nil {
		h.sendLocked(c, newErrorMessage(err))

		// A rejected rename leaves the sender's input out of sync.
		if msg.Type == "rename" {
			h.sendLocked(c, h.rosterLocked())
		}
	}
}

func (h *Hub) addParticipantLocked(name string) error {
	if h.stage != stageInput {
		return errWrongStage
	}
	if len(h.participants) >= maxParticipants {
		return errRosterFull
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return errNameTooLong
	}

	h.participants = append(h.participants, santa.NewParticipant(name))
	h.broadcastLocked(h.rosterLocked())

	return nil
}

func (h *Hub) renameParticipantLocked(c *Client, id, name string) error {
	if h.stage != stageInput {
		return errWrongStage
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return errNameTooLong
	}

	i := h.participantIndexLocked(id)
	if i < 0 {
		return errNoSuchPerson
	}

	// The sender's own input already holds name.
	h.participants[i].Name = name
	h.broadcastExceptLocked(c, h.rosterLocked())

	return nil
}

func (h *Hub) removeParticipantLocked(id string) error {
	if h.stage != stageInput {
		return errWrongStage
	}

	i := h.participantIndexLocked(id)
	switch {
	case i < 0:
		return errNoSuchPerson
	case i == 0:
		return errOrganizerRow
	}

	h.participants = append(h.participants[:i], h.participants[i+1:]...)
	h.broadcastLocked(h.rosterLocked())

	return nil
}

func (h *Hub) generateLocked() error {
	if h.stage != stageInput {
		return errWrongStage
	}

	// The generator gets its own copy with trimmed names.
	snapshot := make([]santa.Participant, len(h.participants))
	for i, p := range h.participants {
		snapshot[i] = santa.Participant{
			ID:   p.ID,
			Name: santa.NormalizeName(p.Name),
		}
	}

	if err := santa.ValidateRoster(snapshot, h.minimum); err != nil {
		return err
	}

	assignments, err := h.generator.Generate(snapshot)
	if err != nil {
		logf("GAMES: Draw %s failed for %d participants: %v", h.id, len(snapshot), err)
		return errDrawFailed
	}

	h.participants = snapshot
	h.assignments = assignments
	h.completed = make(map[string]bool)
	h.openGiver = ""
	h.stage = stageReveal

	logf("GAMES: Draw %s generated for %d participants", h.id, len(assignments))

	h.broadcastLocked(h.rosterLocked())
	h.broadcastLocked(h.progressLocked())

	return nil
}

func (h *Hub) openCardLocked(c *Client, giverID string) error {
	if h.stage != stageReveal {
		return errWrongStage
	}

	i := h.assignmentIndexLocked(giverID)
	if i < 0 {
		return errNoSuchPerson
	}
	if h.completed[giverID] {
		return errCardLocked
	}

	h.openGiver = giverID
	h.assignments[i].Revealed = false

	h.sendLocked(c, CardMessage{
		Type:      "card",
		GiverID:   giverID,
		GiverName: h.assignments[i].Giver.Name,
	})
	h.broadcastLocked(h.progressLocked())

	return nil
}

func (h *Hub) revealLocked(c *Client) error {
	if h.stage != stageReveal {
		return errWrongStage
	}

	i := h.assignmentIndexLocked(h.openGiver)
	if i < 0 {
		return errNoOpenCard
	}

	a := &h.assignments[i]
	a.Revealed = true

	text := santa.ShareMessage(*a)

	h.sendLocked(c, RevealedMessage{
		Type:         "revealed",
		GiverName:    a.Giver.Name,
		ReceiverName: a.Receiver.Name,
		Message:      text,
		WhatsApp:     santa.WhatsAppURL(text),
		SMS:          santa.SMSURL(text, c.ios),
	})

	return nil
}

func (h *Hub) closeCardLocked() error {
	if h.stage != stageReveal {
		return errWrongStage
	}
	if h.openGiver == "" {
		return errNoOpenCard
	}

	h.completed[h.openGiver] = true
	h.openGiver = ""

	h.broadcastLocked(h.progressLocked())

	return nil
}

// resetLocked discards the draw and starts over with a single empty slot.
// A draw in the reveal stage can only be reset once every card is closed.
func (h *Hub) resetLocked() error {
	if h.stage == stageReveal && len(h.completed) < len(h.assignments) {
		return errDrawUnfinished
	}

	h.stage = stageInput
	h.participants = []santa.Participant{santa.NewParticipant("")}
	h.assignments = nil
	h.completed = make(map[string]bool)
	h.openGiver = ""

	logf("GAMES: Draw %s reset", h.id)

	h.broadcastLocked(h.rosterLocked())
	h.broadcastLocked(h.progressLocked())

	return nil
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "secretsanta_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		errorf("ERROR: rand.Read: %v", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// DrawManager holds a set of hubs keyed by draw ID, so each $path/$drawid
// is its own isolated session.
type DrawManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	generator   *santa.Generator
	minimum     int
	metrics     *Metrics
	quit        chan struct{}
	stopOnce    sync.Once
}

func newDrawManager(idleTimeout time.Duration, generator *santa.Generator, minimum int, m *Metrics) *DrawManager {
	dm := &DrawManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		generator:   generator,
		minimum:     minimum,
		metrics:     m,
		quit:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go dm.reaperLoop()
	}
	return dm
}

func (dm *DrawManager) getHub(drawID string) *Hub {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if hub, ok := dm.hubs[drawID]; ok {
		return hub
	}

	hub := newHub(drawID, dm.generator, dm.minimum)
	dm.hubs[drawID] = hub
	dm.metrics.setDraws(len(dm.hubs))
	go hub.run()
	return hub
}

// newDrawID generates a crypto-random draw ID and ensures it doesn't
// collide with existing draws.
func (dm *DrawManager) newDrawID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		dm.mu.Lock()
		_, exists := dm.hubs[id]
		dm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs idle since before cutoff.
func (dm *DrawManager) reap(cutoff time.Time) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, hub := range dm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		created := hub.createdAt
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(dm.hubs, id)
			logf("GAMES: Reaped idle draw %s after %s", id, time.Since(created).Round(time.Second))
			go hub.closeAll()
		}
	}

	dm.metrics.setDraws(len(dm.hubs))
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (dm *DrawManager) reaperLoop() {
	ticker := time.NewTicker(dm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dm.reap(time.Now().Add(-dm.idleTimeout))
		case <-dm.quit:
			return
		}
	}
}

// stop ends the reaper and closes every hub.
func (dm *DrawManager) stop() {
	dm.stopOnce.Do(func() {
		close(dm.quit)
	})

	dm.mu.Lock()
	defer dm.mu.Unlock()

	for id, hub := range dm.hubs {
		delete(dm.hubs, id)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :drawid
func serveWSForManager(dm *DrawManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		drawID := ps.ByName("drawid")
		if drawID == "" {
			http.Error(w, "missing draw id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := dm.getHub(drawID)

		// Carries the Set-Cookie from getOrSetPlayerID, if one was issued.
		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			logf("GAMES: Websocket upgrade for %s from %s failed: %v", drawID, realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
			ios:      santa.IsIOS(r.UserAgent()),
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "add", "rename", "remove", "generate", "open_card", "reveal", "close_card", "reset":
			select {
			case h.commands <- command{client: c, msg: msg}:
			case <-h.quit:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler generates a PNG QR code for the current draw URL.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		drawID := ps.ByName("drawid")
		if drawID == "" {
			http.Error(w, "missing draw id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		// We are at /.../:drawid/qr; strip trailing "/qr" to get the draw URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err
		}
	}
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/santa/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, err = w.Write(data)
		if err != nil {
			errs <- err
		}
	}
}

// redirectNewDraw handles GET /path by generating a new random draw ID
// (with server-side collision detection) and redirecting to /path/:drawid.
func redirectNewDraw(cfg *Config, path string, dm *DrawManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		drawID := dm.newDrawID()
		logf("GAMES: Created draw %s/%s for %s", path, drawID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+drawID, http.StatusTemporaryRedirect)
	}
}

// registerSantaGame sets up routes so that:
//   - $path                  → redirects to new random draw (8-char ID)
//   - $path/:drawid          → HTML client
//   - $path/:drawid/ws       → WebSocket for that draw
//   - $path/:drawid/qr       → PNG QR code for that draw URL
//
// The returned function stops the reaper and closes every draw.
func registerSantaGame(cfg *Config, path string, mux *httprouter.Router, m *Metrics, errs chan<- error) func() {
	dm := newDrawManager(cfg.sessionTimeout, newGenerator(cfg, m), cfg.minParticipants, m)

	mux.GET(cfg.prefix+path, redirectNewDraw(cfg, path, dm))

	mux.GET(cfg.prefix+path+"/:drawid", getIndexHandler(cfg, errs))

	mux.GET(cfg.prefix+path+"/:drawid/ws", serveWSForManager(dm))

	mux.GET(cfg.prefix+path+"/:drawid/qr", qrHandler(cfg, errs))

	return dm.stop
}
