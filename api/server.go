package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"gavel/adapters/database"
	"gavel/adapters/memory"
	natsAdapter "gavel/adapters/nats"
	redisAdapter "gavel/adapters/redis"
	"gavel/adapters/sse"
	"gavel/auction"
	"gavel/models"
)

// IStore 伺服器使用的儲存層，除了引擎需要的操作之外還要能保存與查詢事件
type IStore interface {
	auction.IStore
	auction.IEventArchive
	ListEvents(ctx context.Context, auctionID uuid.UUID) ([]models.Event, error)
}

type serverOptions struct {
	logger        *slog.Logger
	store         IStore
	redisClient   *redis.Client
	engineOptions []auction.EngineOption

	// backgroundSweep 是否在 Start 時啟動定時結標掃描
	backgroundSweep bool
}

type ServerOption func(*serverOptions)

// WithServerLogger 設置日誌記錄器
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithServerStore 使用指定的儲存層，忽略 ServerConfig.Store
func WithServerStore(store IStore) ServerOption {
	return func(o *serverOptions) {
		o.store = store
	}
}

// WithServerRedisClient 使用指定的 redis 連線，忽略 ServerConfig.Redis 的連線設定
func WithServerRedisClient(client *redis.Client) ServerOption {
	return func(o *serverOptions) {
		o.redisClient = client
	}
}

// WithServerEngineOptions 附加引擎選項 (主要用於測試)
func WithServerEngineOptions(opts ...auction.EngineOption) ServerOption {
	return func(o *serverOptions) {
		o.engineOptions = append(o.engineOptions, opts...)
	}
}

// WithServerBackgroundSweep 是否啟動定時結標掃描，關閉時只能透過 /admin/sweep 觸發
func WithServerBackgroundSweep(enabled bool) ServerOption {
	return func(o *serverOptions) {
		o.backgroundSweep = enabled
	}
}

type ServerImpl struct {
	engine        *auction.Engine
	sweeper       *auction.Sweeper
	sweepEnabled  bool
	store         IStore
	sseManager    sse.IConnectionManager[models.Event]
	htmlChecker   *bluemonday.Policy
	redisClient   *redis.Client
	producer      redisAdapter.IProducer[models.Event]
	groupConsumer redisAdapter.IGroupConsumer[models.Event]
	natsConn      *nats.Conn
	natsArchiver  *natsAdapter.Archiver
	closeDB       func() error
	wg            sync.WaitGroup
	cancelFunc    context.CancelFunc
	logger        *slog.Logger

	config ServerConfig
}

func NewServer(config ServerConfig, opts ...ServerOption) (*ServerImpl, error) {
	const op = "NewServer"

	// 默認選項
	options := serverOptions{
		logger:          slog.Default(),
		backgroundSweep: true,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	impl := &ServerImpl{
		htmlChecker:  bluemonday.StrictPolicy(),
		sweepEnabled: options.backgroundSweep,
		logger:       options.logger.With(slog.String("caller", "Server")),
		config:       config,
	}

	// 初始化儲存層
	if err := impl.initStore(options); err != nil {
		return nil, fmt.Errorf("[%s] %w", op, err)
	}

	var notifiers auction.MultiNotifier
	engineOptions := []auction.EngineOption{
		auction.WithEngineLogger(options.logger),
		auction.WithEngineBidRetries(config.Engine.BidRetries, config.Engine.RetryBackoff),
		auction.WithEngineAntiSnipe(config.Engine.ExtensionWindow, config.Engine.ExtensionAmount, config.Engine.MaxExtensions),
		auction.WithEngineSweep(config.Sweeper.Workers, config.Sweeper.BatchSize),
		auction.WithEngineOrderCurrency(config.Order.Currency, config.Order.PriceExponent),
	}

	// 初始化Redis連線
	impl.redisClient = options.redisClient
	if impl.redisClient == nil && config.Redis.Addr != "" {
		impl.redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
	}

	// 初始化SSE管理器
	//  - 有 redis 時所有實例透過 stream 共享事件，並以 redis 鎖避免重複結標
	//  - 沒有 redis 時事件只在本機廣播
	if impl.redisClient != nil {
		notifier, locker, err := impl.initRedis(options.logger)
		if err != nil {
			return nil, fmt.Errorf("[%s] %w", op, err)
		}
		notifiers = append(notifiers, notifier)
		engineOptions = append(engineOptions, auction.WithEngineLocker(locker))
	} else {
		sseManager, err := sse.NewConnectionManager[models.Event](sse.WithLogger[models.Event](options.logger))
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create sse connection manager, err=%w", op, err)
		}
		localNotifier, err := sse.NewLocalNotifier(sseManager)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create local notifier, err=%w", op, err)
		}
		impl.sseManager = sseManager
		notifiers = append(notifiers, localNotifier)
	}

	// 初始化NATS連線
	if config.NATS.URL != "" {
		notifier, err := impl.initNATS(options.logger)
		if err != nil {
			return nil, fmt.Errorf("[%s] %w", op, err)
		}
		notifiers = append(notifiers, notifier)
	}

	// 沒有任何訊息佇列時直接寫入歸檔
	if impl.groupConsumer == nil && impl.natsArchiver == nil {
		notifiers = append(notifiers, auction.ArchiveNotifier{Archive: impl.store})
	}

	// 初始化拍賣引擎
	engine, err := auction.NewEngine(impl.store, notifiers, append(engineOptions, options.engineOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create auction engine, err=%w", op, err)
	}
	impl.engine = engine

	// 初始化結標掃描
	sweeperOptions := []auction.SweeperOption{auction.WithSweeperLogger(options.logger)}
	if config.Sweeper.Interval > 0 {
		sweeperOptions = append(sweeperOptions, auction.WithSweeperInterval(config.Sweeper.Interval))
	}
	sweeper, err := auction.NewSweeper(engine, sweeperOptions...)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sweeper, err=%w", op, err)
	}
	impl.sweeper = sweeper

	return impl, nil
}

func (impl *ServerImpl) initStore(options serverOptions) error {
	if options.store != nil {
		impl.store = options.store
		return nil
	}
	switch impl.config.Store {
	case StoreMemory, "":
		impl.store = memory.NewStore()
		return nil
	case StorePostgres:
		db, err := database.Open(impl.config.DB)
		if err != nil {
			return err
		}
		store, err := database.NewStore(db, database.WithStoreLogger(options.logger))
		if err != nil {
			return fmt.Errorf("Fail to create database store, err=%w", err)
		}
		if err := store.Migrate(context.Background()); err != nil {
			return fmt.Errorf("Fail to migrate database, err=%w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("Fail to get sql.DB, err=%w", err)
		}
		impl.store = store
		impl.closeDB = sqlDB.Close
		return nil
	}
	return fmt.Errorf("unknown store %q", impl.config.Store)
}

// decodePublishRequest 將 stream 中的事件轉成對應拍賣頻道的 SSE 訊息
func decodePublishRequest(message map[string]any) (sse.PublishRequest[models.Event], error) {
	event, err := redisAdapter.DecodeEvent(message)
	if err != nil {
		return sse.PublishRequest[models.Event]{}, fmt.Errorf("fail to parse message to sse.PublishRequest[models.Event], err=%w", err)
	}
	return sse.PublishRequest[models.Event]{
		Channel: event.AuctionID.String(),
		Message: event,
	}, nil
}

func (impl *ServerImpl) initRedis(logger *slog.Logger) (auction.INotifier, auction.ILocker, error) {
	cfg := impl.config.Redis
	producer, err := redisAdapter.NewProducer[models.Event](
		impl.redisClient,
		cfg.StreamKeys.Events,
		redisAdapter.WithProducerLogger[models.Event](logger),
		redisAdapter.WithProducerEncodeFunc(redisAdapter.EncodeEvent),
		redisAdapter.WithProducerMaxLen[models.Event](cfg.StreamMaxLen),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("Fail to create producer, err=%w", err)
	}
	notifier, err := redisAdapter.NewNotifier(producer)
	if err != nil {
		return nil, nil, fmt.Errorf("Fail to create redis notifier, err=%w", err)
	}
	lockerOptions := []redisAdapter.LockerOption{
		redisAdapter.WithLockerLogger(logger),
		redisAdapter.WithLockerPrefix(cfg.KeyPrefix),
	}
	if cfg.LockExpiry > 0 {
		lockerOptions = append(lockerOptions, redisAdapter.WithLockerExpiry(cfg.LockExpiry))
	}
	locker, err := redisAdapter.NewLocker(impl.redisClient, lockerOptions...)
	if err != nil {
		return nil, nil, fmt.Errorf("Fail to create redis locker, err=%w", err)
	}
	consumer, err := redisAdapter.NewConsumer[sse.PublishRequest[models.Event]](
		impl.redisClient,
		cfg.StreamKeys.Events,
		redisAdapter.WithConsumerLogger[sse.PublishRequest[models.Event]](logger),
		redisAdapter.WithConsumerDecodeFunc(decodePublishRequest),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("Fail to create consumer, err=%w", err)
	}
	sseManager, err := sse.NewConnectionManager[models.Event](
		sse.WithLogger[models.Event](logger),
		sse.WithSubscriber[models.Event](consumer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("Fail to create sse connection manager, err=%w", err)
	}
	groupConsumer, err := redisAdapter.NewGroupConsumer[models.Event](
		impl.redisClient,
		cfg.StreamKeys.Events,
		cfg.ConsumerGroup,
		impl.config.ID,
		redisAdapter.WithGroupConsumerLogger[models.Event](logger),
		redisAdapter.WithGroupConsumerDecodeFunc(redisAdapter.DecodeEvent),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("Fail to create group consumer, err=%w", err)
	}
	impl.producer = producer
	impl.sseManager = sseManager
	impl.groupConsumer = groupConsumer
	return notifier, locker, nil
}

func (impl *ServerImpl) initNATS(logger *slog.Logger) (auction.INotifier, error) {
	cfg := impl.config.NATS
	conn, js, err := natsAdapter.Connect(cfg.URL, impl.config.ID)
	if err != nil {
		return nil, err
	}
	stream, err := natsAdapter.EnsureStream(context.Background(), js, natsAdapter.StreamConfig{
		Stream:  cfg.Stream,
		Subject: cfg.Subject,
		MaxAge:  cfg.MaxAge,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("Fail to ensure nats stream, err=%w", err)
	}
	notifier, err := natsAdapter.NewNotifier(js, cfg.Subject)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("Fail to create nats notifier, err=%w", err)
	}
	impl.natsConn = conn
	// 已經由 redis stream 歸檔時不重複歸檔
	if impl.groupConsumer == nil {
		archiver, err := natsAdapter.NewArchiver(stream, impl.store, cfg.Subject,
			natsAdapter.WithArchiverLogger(logger),
			natsAdapter.WithArchiverDurable(cfg.Durable))
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("Fail to create nats archiver, err=%w", err)
		}
		impl.natsArchiver = archiver
	}
	return notifier, nil
}

func (impl *ServerImpl) Start() error {
	const op = "Start"
	// 啟動producer
	if impl.producer != nil {
		impl.producer.Start()
	}
	// 啟動sse connection manager
	impl.sseManager.Start()

	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel
	// 啟動一個worker用於將stream中的事件存回資料庫
	if impl.groupConsumer != nil {
		if err := impl.groupConsumer.Start(); err != nil {
			return fmt.Errorf("[%s] Fail to start group consumer, err=%w", op, err)
		}
		impl.wg.Add(1)
		go func() {
			defer impl.wg.Done()
			impl.archiveEvents(ctx)
		}()
	}
	if impl.natsArchiver != nil {
		if err := impl.natsArchiver.Start(ctx); err != nil {
			return fmt.Errorf("[%s] Fail to start nats archiver, err=%w", op, err)
		}
	}
	// 啟動結標掃描
	if impl.sweepEnabled {
		impl.sweeper.Start()
	}
	return nil
}

// Close 依照啟動的相反順序關閉，進行中的結標會執行完畢
func (impl *ServerImpl) Close() {
	// 關閉結標掃描
	impl.sweeper.Close()
	// 關閉group consumer與worker
	if impl.groupConsumer != nil {
		if err := impl.groupConsumer.Close(); err != nil {
			impl.logger.Warn("Fail to close group consumer", slog.Any("error", err))
		}
	}
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	if impl.natsArchiver != nil {
		impl.natsArchiver.Close()
	}
	// 關閉sse connection manager
	impl.sseManager.Done()
	// 關閉producer，緩衝中的事件會被丟棄
	if impl.producer != nil {
		impl.producer.Close()
	}
	if impl.natsConn != nil {
		if err := impl.natsConn.Drain(); err != nil {
			impl.logger.Warn("Fail to drain nats connection", slog.Any("error", err))
		}
	}
	if impl.redisClient != nil {
		if err := impl.redisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			impl.logger.Warn("Fail to close redis client", slog.Any("error", err))
		}
	}
	if impl.closeDB != nil {
		if err := impl.closeDB(); err != nil {
			impl.logger.Warn("Fail to close database", slog.Any("error", err))
		}
	}
}

// Router 註冊所有路由
func (impl *ServerImpl) Router() *gin.Engine {
	router := gin.Default()
	// handler 中的 *gin.Context 跟著請求的 context 取消
	router.ContextWithFallback = true
	impl.RegisterHandlers(router)
	return router
}

func (impl *ServerImpl) RegisterHandlers(router gin.IRouter) {
	auctions := router.Group("/auctions")
	auctions.POST("", impl.authenticate, impl.PostAuction)
	auctions.GET("/:auctionID", impl.GetAuction)
	auctions.GET("/:auctionID/bids", impl.GetAuctionBids)
	auctions.POST("/:auctionID/bids", impl.authenticate, impl.PostAuctionBid)
	auctions.GET("/:auctionID/events", impl.GetAuctionEvents)
	auctions.GET("/:auctionID/history", impl.GetAuctionHistory)
	auctions.GET("/:auctionID/order", impl.GetAuctionOrder)

	admin := router.Group("/admin", impl.authenticate, impl.requireAdmin)
	admin.POST("/auctions/:auctionID/schedule", impl.PostAdminSchedule)
	admin.POST("/auctions/:auctionID/activate", impl.PostAdminActivate)
	admin.POST("/auctions/:auctionID/cancel", impl.PostAdminCancel)
	admin.POST("/auctions/:auctionID/close", impl.PostAdminClose)
	admin.POST("/sweep", impl.PostAdminSweep)
}
