package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/gorilla/context"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/googleads/aw-reporting/auth"
	"github.com/googleads/aw-reporting/manager"
	"github.com/googleads/aw-reporting/token"
	"github.com/googleads/aw-reporting/utils"
)

const (
	appSessionName    = "mccd"
	accessTokenHeader = "X-Access-Token"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type contextKey int

const (
	usernameKey contextKey = iota
)

type Config struct {
	ListenAddr string
	// SelfURL is the base URL the page controller uses to reach this server.
	SelfURL    string
	Template   string
	StaticDir  string
	LoginRate  float64
	LoginBurst int
}

type Api struct {
	listenAddr   string
	selfURL      string
	template     string
	staticDir    string
	manager      *manager.Manager
	loginLimiter *rate.Limiter
	client       *http.Client
}

type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type UserTokenRequest struct {
	TopAccountID string `json:"topAccountId"`
	Email        string `json:"email"`
}

func NewApi(cfg Config, mgr *manager.Manager) *Api {
	if cfg.LoginRate <= 0 {
		cfg.LoginRate = 5
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = 10
	}

	return &Api{
		listenAddr:   cfg.ListenAddr,
		selfURL:      cfg.SelfURL,
		template:     cfg.Template,
		staticDir:    cfg.StaticDir,
		manager:      mgr,
		loginLimiter: rate.NewLimiter(rate.Limit(cfg.LoginRate), cfg.LoginBurst),
		client:       &http.Client{Timeout: selfRequestTimeout},
	}
}

func (a *Api) getUsernameAndToken(r *http.Request) (string, string, error) {
	tokenHeader := r.Header.Get(accessTokenHeader)
	if tokenHeader == "" {
		if c, err := r.Cookie(appSessionName); err == nil {
			tokenHeader = c.Value
		}
	}

	t, err := auth.ParseAccessToken(tokenHeader)
	if err != nil {
		return "", "", ErrUnauthorized
	}

	return t.Username, t.Token, nil
}

func (a *Api) authRequiredMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, token, err := a.getUsernameAndToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		if err := a.manager.ValidateToken(username, token); err == nil {
			// mux hands handlers a copy of the request, which ClearHandler never sees
			defer context.Clear(r)
			context.Set(r, usernameKey, username)
			next.ServeHTTP(w, r)
			return
		}

		log.Warnf("unauthorized request: username=%s addr=%s", username, r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

// requestUsername is the user validated by authRequiredMiddleware.
func requestUsername(r *http.Request) string {
	username, _ := context.Get(r, usernameKey).(string)
	return username
}

func (a *Api) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.loginLimiter.Allow() {
			log.Warnf("rate limited: path=%s addr=%s", r.URL.Path, r.RemoteAddr)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Api) login(w http.ResponseWriter, r *http.Request) {
	var creds *Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds == nil {
		log.Warnf("error getting login credentials: %v", err)
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}

	if !a.manager.Authenticate(creds.Username, creds.Password) {
		log.Warnf("invalid login: username=%s addr=%s", creds.Username, r.RemoteAddr)
		http.Error(w, "invalid username/password", http.StatusUnauthorized)
		return
	}

	token, err := a.manager.GenerateToken(creds.Username)
	if err != nil {
		log.Errorf("error generating token: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     appSessionName,
		Value:    token.AccessToken(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(token); err != nil {
		log.Errorf("error serializing auth token: %s", err)
		return
	}

	log.Debugf("user login: username=%s addr=%s", creds.Username, r.RemoteAddr)
}

func (a *Api) signup(w http.ResponseWriter, r *http.Request) {
	var account *auth.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil || account == nil {
		log.Errorf("error getting signup account: %v", err)
		http.Error(w, "invalid account", http.StatusBadRequest)
		return
	}

	if !account.Valid() {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	// check for existing user
	acct, err := a.manager.Account(account.Username)
	if err != nil {
		log.Errorf("error getting account: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// user already exists
	if acct != nil {
		http.Error(w, "user already exists", http.StatusBadRequest)
		return
	}

	// create account
	if err := a.manager.SaveAccount(account); err != nil {
		log.Errorf("error saving account: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Infof("signup: username=%s email=%s", account.Username, account.Email)
	w.WriteHeader(http.StatusCreated)
}

func (a *Api) myMCCs(w http.ResponseWriter, r *http.Request) {
	username := requestUsername(r)

	tokens, err := a.manager.UserTokens(username)
	if err != nil {
		log.Errorf("error getting user tokens: user=%s err=%s", username, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if tokens == nil {
		tokens = []token.UserToken{}
	}

	addReadOnlyHeaders(w)
	writeJSON(w, http.StatusOK, tokens)
}

func (a *Api) topAccounts(w http.ResponseWriter, r *http.Request) {
	username := requestUsername(r)
	topAccountID := utils.NormalizeAccountID(mux.Vars(r)["topAccountId"])

	if !a.owns(w, username, topAccountID) {
		return
	}

	accounts, err := a.manager.ManagedAccounts(topAccountID)
	if err != nil {
		log.Errorf("error getting accounts: mcc=%s err=%s", topAccountID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	addReadOnlyHeaders(w)
	writeJSON(w, http.StatusOK, accounts)
}

func (a *Api) account(w http.ResponseWriter, r *http.Request) {
	username := requestUsername(r)
	accountID := utils.NormalizeAccountID(mux.Vars(r)["accountId"])

	account, err := a.manager.ManagedAccount(accountID)
	if err == manager.ErrAccountDoesNotExist {
		// same answer as an account of a foreign MCC
		http.Error(w, "FORBIDDEN", http.StatusForbidden)
		return
	} else if err != nil {
		log.Errorf("error getting account: account=%s err=%s", accountID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !a.owns(w, username, account.TopAccountID) {
		return
	}

	addReadOnlyHeaders(w)
	writeJSON(w, http.StatusOK, account)
}

func (a *Api) addUserToken(w http.ResponseWriter, r *http.Request) {
	username := requestUsername(r)

	form := isForm(r)

	var req *UserTokenRequest
	if form {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid user token", http.StatusBadRequest)
			return
		}
		req = &UserTokenRequest{
			TopAccountID: r.PostForm.Get("topAccountId"),
			Email:        r.PostForm.Get("email"),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		http.Error(w, "invalid user token", http.StatusBadRequest)
		return
	}

	topAccountID := utils.NormalizeAccountID(req.TopAccountID)
	if topAccountID == "" {
		http.Error(w, "topAccountId is required", http.StatusBadRequest)
		return
	}

	t := token.UserToken{
		TopAccountID: topAccountID,
		Email:        req.Email,
		UserID:       username,
	}
	if err := a.manager.SaveUserToken(t); err != nil {
		log.Errorf("error saving user token: mcc=%s user=%s err=%s", topAccountID, username, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Infof("added user token: mcc=%s user=%s", topAccountID, username)

	// the page form comes back to the rendered page
	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func isForm(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/x-www-form-urlencoded"
}

func (a *Api) removeUserToken(w http.ResponseWriter, r *http.Request) {
	username := requestUsername(r)
	topAccountID := utils.NormalizeAccountID(mux.Vars(r)["topAccountId"])

	err := a.manager.RemoveUserToken(username, topAccountID)
	if err == manager.ErrUserTokenDoesNotExist {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Infof("removed user token: mcc=%s user=%s", topAccountID, username)
	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) saveAccounts(w http.ResponseWriter, r *http.Request) {
	username := requestUsername(r)
	topAccountID := utils.NormalizeAccountID(mux.Vars(r)["topAccountId"])

	if !a.owns(w, username, topAccountID) {
		return
	}

	var accounts []*manager.ManagedAccount
	if err := json.NewDecoder(r.Body).Decode(&accounts); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, acct := range accounts {
		if acct == nil || acct.AccountID == "" {
			http.Error(w, "accountId is required", http.StatusBadRequest)
			return
		}
		acct.AccountID = utils.NormalizeAccountID(acct.AccountID)
	}

	err := a.manager.SaveManagedAccounts(topAccountID, accounts)
	if errors.Is(err, manager.ErrAccountBelongsToOtherMCC) || errors.Is(err, manager.ErrConcurrentUpdate) {
		log.Warnf("refused accounts: mcc=%s user=%s err=%s", topAccountID, username, err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	} else if err != nil {
		log.Errorf("error saving accounts: mcc=%s err=%s", topAccountID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Infof("saved accounts: mcc=%s count=%d", topAccountID, len(accounts))
	w.WriteHeader(http.StatusNoContent)
}

// owns writes a 403 and returns false unless username holds a token for the MCC.
func (a *Api) owns(w http.ResponseWriter, username, topAccountID string) bool {
	ok, err := a.manager.HasUserToken(username, topAccountID)
	if err != nil {
		log.Errorf("error checking user token: mcc=%s user=%s err=%s", topAccountID, username, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}

	if !ok {
		log.Warnf("forbidden: mcc=%s user=%s", topAccountID, username)
		http.Error(w, "FORBIDDEN", http.StatusForbidden)
		return false
	}

	return true
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	addReadOnlyHeaders(w)
	writeJSON(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

func addReadOnlyHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("error serializing response: %s", err)
	}
}

func (a *Api) Router() http.Handler {
	globalMux := http.NewServeMux()

	authRouter := mux.NewRouter()
	authRouter.Handle("/auth/login", a.rateLimitMiddleware(http.HandlerFunc(a.login))).Methods("POST")
	authRouter.Handle("/auth/signup", a.rateLimitMiddleware(http.HandlerFunc(a.signup))).Methods("POST")

	apiRouter := mux.NewRouter()

	apiRouter.Handle("/mymccs", a.authRequiredMiddleware(http.HandlerFunc(a.myMCCs))).Methods("GET")
	apiRouter.HandleFunc("/mymccs", methodNotAllowed)
	apiRouter.Handle("/accounts/account/{accountId}", a.authRequiredMiddleware(http.HandlerFunc(a.account))).Methods("GET")
	apiRouter.HandleFunc("/accounts/account/{accountId}", methodNotAllowed)
	apiRouter.Handle("/accounts/{topAccountId}", a.authRequiredMiddleware(http.HandlerFunc(a.topAccounts))).Methods("GET")
	apiRouter.HandleFunc("/accounts/{topAccountId}", methodNotAllowed)

	apiRouter.Handle("/api/usertokens", a.authRequiredMiddleware(http.HandlerFunc(a.addUserToken))).Methods("POST")
	apiRouter.Handle("/api/usertokens/{topAccountId}", a.authRequiredMiddleware(http.HandlerFunc(a.removeUserToken))).Methods("DELETE")
	apiRouter.Handle("/api/accounts/{topAccountId}", a.authRequiredMiddleware(http.HandlerFunc(a.saveAccounts))).Methods("POST")

	globalMux.Handle("/api/", apiRouter)
	globalMux.Handle("/mymccs", apiRouter)
	globalMux.Handle("/accounts/", apiRouter)
	globalMux.Handle("/auth/", authRouter)

	// global handler
	pageRouter := mux.NewRouter()
	pageRouter.HandleFunc("/", a.index).Methods("GET")
	pageRouter.HandleFunc("/index.html", a.index).Methods("GET")
	pageRouter.PathPrefix("/").Handler(http.FileServer(http.Dir(a.staticDir)))
	globalMux.Handle("/", pageRouter)

	return context.ClearHandler(globalMux)
}

func (a *Api) Run() error {
	s := &http.Server{
		Addr:    a.listenAddr,
		Handler: a.Router(),
	}

	return s.ListenAndServe()
}
