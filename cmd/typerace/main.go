package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"

	"github.com/folkengine/goname"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/raceline/typerace/auth"
	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/game"
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/scheduler"
	"github.com/raceline/typerace/text"
	"github.com/raceline/typerace/types"
	"github.com/raceline/typerace/ws"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "ws service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert for websocket (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key for websocket (optional)")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	hubs     map[string]*ws.Hub = make(map[string]*ws.Hub)
	hubsLock sync.RWMutex

	globalConfig *config.Config
	store        persistence.Store
	svc          *game.Service
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		log.Fatal("interrupted!")
	}()

	pflag.Parse()
	log.SetFlags(0)

	var err error
	globalConfig, err = config.ReadConfiguration(*configPath, config.GetFlagSet())
	if err != nil {
		panic(err)
	}

	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	store, err = persistence.NewStore(globalConfig)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	corpus := text.NewCorpus()
	if globalConfig.CorpusConfig.Path != "" {
		corpus, err = text.LoadCorpus(globalConfig.CorpusConfig.Path)
		if err != nil {
			panic(err)
		}
	}

	svc = game.NewService(store, scheduler.NewTimerScheduler(), corpus, globalConfig)

	setupRoutes()
	// start HTTP server
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(*addr, *sslCert, *sslKey, nil)
	} else {
		err = http.ListenAndServe(*addr, nil)
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}

func setupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/race/{room}", websocketHandler).Methods(http.MethodGet)
	http.Handle("/", router)
}

// getHub returns the hub for the given room, starting one if the room exists
// but has no connected clients yet.
func getHub(roomId string) *ws.Hub {
	hubsLock.RLock()
	if hub, ok := hubs[roomId]; ok {
		hubsLock.RUnlock()
		return hub
	}
	hubsLock.RUnlock()

	hubsLock.Lock()
	defer hubsLock.Unlock()
	if hub, ok := hubs[roomId]; ok {
		return hub
	}
	hub := ws.NewHub(roomId, globalConfig, svc)
	hubs[roomId] = hub
	go hub.Run()
	return hub
}

// rejectWithError writes a single error message to the fresh websocket
// connection and closes it.
func rejectWithError(conn *websocket.Conn, err error) {
	wireErr := types.WireError{Code: "INTERNAL", Message: err.Error()}
	var coded *types.ErrorWithCode
	if errors.As(err, &coded) {
		wireErr.Code = coded.Code
	}
	if raw, err := types.NewWireMessage(types.MessageTypeError, wireErr); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}
	conn.Close()
}

// Handle incoming websockets
func websocketHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomId := vars["room"]
	if roomId == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	userId := ""
	vals := r.URL.Query()
	if idToken := vals.Get("id_token"); idToken != "" {
		if provider := vals.Get("provider"); provider != "" {
			userId, _ = auth.Authenticate(idToken, provider, globalConfig)
		}
	}

	// Upgrade HTTP request to Websocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}

	// When this frame returns close the Websocket
	defer conn.Close() //nolint

	name := vals.Get("name")
	if userId == "" {
		// guests get a generated identity, no token required
		name = goname.New(goname.FantasyMap).FirstLast() + " (guest)"
		userId = name
	}
	if name == "" {
		name = userId
	}
	user, err := auth.EnsureUser(store, globalConfig, userId, name)
	if err != nil {
		globals.AppLogger.Error("could not register user", "error", err)
		rejectWithError(conn, err)
		return
	}

	// leave any stale rooms from previous connections before joining
	if err := svc.CleanupProgress(user.Id, roomId); err != nil {
		globals.AppLogger.Error("could not clean up progress", "user", user.Id, "error", err)
	}
	if err := svc.JoinRoom(roomId, user.Id); err != nil {
		globals.AppLogger.Info("join rejected", "room", roomId, "user", user.Id, "error", err)
		rejectWithError(conn, err)
		return
	}

	hub := getHub(roomId)
	doneChan := make(chan struct{})
	client := ws.NewClient(hub, conn, user, doneChan)

	// Add to the hub
	hub.Register <- client
	defer func() {
		hub.Unregister <- client
	}()
	client.Add(2)
	go client.ReadLoop()
	go client.WriteLoop()

	<-doneChan
	globals.AppLogger.Debug("connection closed", "room", roomId, "clients", hub.NoClients())
}
